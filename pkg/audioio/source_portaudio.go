//go:build !noportaudio

package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

const portAudioAvailable = true

// PortAudioSource captures audio from a PortAudio input device.
type PortAudioSource struct {
	cfg    Config
	logger *slog.Logger

	stream *portaudio.Stream
	buf    []int16

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan AudioChunk
	stopCh   chan struct{}
	done     chan struct{}

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	return NewPortAudioSource(cfg, logger)
}

// NewPortAudioSource initializes PortAudio and opens the configured input device.
func NewPortAudioSource(cfg Config, logger *slog.Logger) (*PortAudioSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	s := &PortAudioSource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.portaudio"),
		buf:    make([]int16, cfg.BufferSize()*cfg.Channels),
	}

	stream, err := s.open()
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	s.stream = stream

	closedCh := make(chan AudioChunk)
	close(closedCh)
	s.streamCh = closedCh

	return s, nil
}

func (s *PortAudioSource) open() (*portaudio.Stream, error) {
	if s.cfg.Device == "" {
		stream, err := portaudio.OpenDefaultStream(s.cfg.Channels, 0, float64(s.cfg.SampleRate), s.cfg.BufferSize(), s.buf)
		if err != nil {
			return nil, fmt.Errorf("open default input: %w", err)
		}
		s.logger.Info("opened default input device")
		return stream, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name != s.cfg.Device || dev.MaxInputChannels < s.cfg.Channels {
			continue
		}
		params := portaudio.LowLatencyParameters(dev, nil)
		params.Input.Channels = s.cfg.Channels
		params.SampleRate = float64(s.cfg.SampleRate)
		params.FramesPerBuffer = s.cfg.BufferSize()

		stream, err := portaudio.OpenStream(params, s.buf)
		if err != nil {
			return nil, fmt.Errorf("open input %q: %w", dev.Name, err)
		}
		s.logger.Info("opened input device", "device", dev.Name)
		return stream, nil
	}
	return nil, fmt.Errorf("input device %q not found", s.cfg.Device)
}

// Start begins audio capture.
func (s *PortAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan AudioChunk, 50)
	s.done = make(chan struct{})

	go s.captureLoop(ctx, s.stopCh, s.streamCh, s.done)

	s.logger.Debug("capture started")
	return nil
}

func (s *PortAudioSource) captureLoop(ctx context.Context, stop <-chan struct{}, out chan<- AudioChunk, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			if errors.Is(err, portaudio.InputOverflowed) {
				s.overruns.Add(1)
			} else {
				s.logger.Error("stream read failed", "error", err)
				return
			}
		}

		samples := make([]int16, len(s.buf))
		copy(samples, s.buf)
		chunk := AudioChunk{
			Samples:    samples,
			SampleRate: s.cfg.SampleRate,
			Channels:   s.cfg.Channels,
		}

		select {
		case out <- chunk:
			s.chunksRead.Add(1)
			s.samplesRead.Add(int64(len(samples)))
		default:
			s.overruns.Add(1)
		}
	}
}

// Stop halts audio capture. Buffered audio is discarded.
func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	<-done
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("stop stream: %w", err)
	}
	s.logger.Debug("capture stopped")
	return nil
}

// Read reads the next audio chunk.
func (s *PortAudioSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.streamCh
	s.mu.Unlock()

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
func (s *PortAudioSource) Stream() <-chan AudioChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Config returns the audio configuration.
func (s *PortAudioSource) Config() Config {
	return s.cfg
}

// Name returns the backend name.
func (s *PortAudioSource) Name() string {
	return string(BackendPortAudio)
}

// Close stops capture, closes the stream and terminates PortAudio.
func (s *PortAudioSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	stopErr := s.Stop()
	closeErr := s.stream.Close()
	termErr := portaudio.Terminate()
	return errors.Join(stopErr, closeErr, termErr)
}

// Stats returns source statistics.
func (s *PortAudioSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     string(BackendPortAudio),
	}
}

var _ SourceWithStats = (*PortAudioSource)(nil)
