package audioio

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// genSource emits chunks produced by next. With realtime set it paces
// chunks at BufferDuration like a live device; otherwise it hands them out
// as fast as they are read, which keeps tests independent of the wall clock.
type genSource struct {
	cfg      Config
	logger   *slog.Logger
	name     string
	realtime bool

	// next returns the next chunk, or false once the source is exhausted.
	// It is only called from the emit goroutine.
	next func() (AudioChunk, bool)

	mu       sync.Mutex
	pending  *AudioChunk // pulled from next but not delivered before Stop
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}
	done     chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
}

func newGenSource(cfg Config, logger *slog.Logger, name string, realtime bool, next func() (AudioChunk, bool)) *genSource {
	if logger == nil {
		logger = slog.Default()
	}
	closedCh := make(chan AudioChunk)
	close(closedCh)

	return &genSource{
		cfg:      cfg,
		logger:   logger.With("component", "audioio."+name),
		name:     name,
		realtime: realtime,
		next:     next,
		streamCh: closedCh,
	}
}

// Start begins emitting audio.
func (g *genSource) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return io.ErrClosedPipe
	}
	if g.running {
		return nil
	}

	g.running = true
	g.stopCh = make(chan struct{})
	g.streamCh = make(chan AudioChunk)
	g.done = make(chan struct{})

	go g.emitLoop(ctx, g.stopCh, g.streamCh, g.done)

	g.logger.Debug("audio source started", "sample_rate", g.cfg.SampleRate)
	return nil
}

func (g *genSource) emitLoop(ctx context.Context, stop <-chan struct{}, out chan<- AudioChunk, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	var tick <-chan time.Time
	if g.realtime {
		ticker := time.NewTicker(g.cfg.BufferDuration)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-tick:
			}
		}

		chunk, ok := g.takePending()
		if !ok {
			if chunk, ok = g.next(); !ok {
				g.logger.Debug("audio source exhausted")
				return
			}
		}

		select {
		case <-ctx.Done():
			g.keepPending(chunk)
			return
		case <-stop:
			g.keepPending(chunk)
			return
		case out <- chunk:
			g.chunksRead.Add(1)
			g.samplesRead.Add(int64(len(chunk.Samples)))
		}
	}
}

func (g *genSource) takePending() (AudioChunk, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return AudioChunk{}, false
	}
	chunk := *g.pending
	g.pending = nil
	return chunk, true
}

// keepPending holds chunk for the next Start so no input is dropped
// between captures.
func (g *genSource) keepPending(chunk AudioChunk) {
	g.mu.Lock()
	g.pending = &chunk
	g.mu.Unlock()
}

// Stop halts audio generation and waits for the emitter to exit.
func (g *genSource) Stop() error {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return nil
	}
	g.running = false
	close(g.stopCh)
	done := g.done
	g.mu.Unlock()

	<-done
	g.logger.Debug("audio source stopped")
	return nil
}

// Read reads the next audio chunk.
func (g *genSource) Read(ctx context.Context) (AudioChunk, error) {
	g.mu.Lock()
	ch := g.streamCh
	g.mu.Unlock()

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

// Stream returns the audio chunk channel.
func (g *genSource) Stream() <-chan AudioChunk {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.streamCh
}

// Config returns the audio configuration.
func (g *genSource) Config() Config {
	return g.cfg
}

// Name returns the backend name.
func (g *genSource) Name() string {
	return g.name
}

// Close stops the source permanently.
func (g *genSource) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.mu.Unlock()

	return g.Stop()
}

// Stats returns source statistics.
func (g *genSource) Stats() SourceStats {
	g.mu.Lock()
	running := g.running
	g.mu.Unlock()

	return SourceStats{
		ChunksRead:  g.chunksRead.Load(),
		SamplesRead: g.samplesRead.Load(),
		Running:     running,
		Backend:     g.name,
	}
}

var _ SourceWithStats = (*genSource)(nil)
