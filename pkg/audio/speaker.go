//go:build !nospeaker

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// SpeakerPlayer decodes MP3 clips and plays them on the default output device.
type SpeakerPlayer struct {
	logger *slog.Logger

	once    sync.Once
	initErr error
	rate    beep.SampleRate

	mu sync.Mutex
}

// NewSpeakerPlayer creates a player. The device is opened on first Play.
func NewSpeakerPlayer(logger *slog.Logger) (Player, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeakerPlayer{logger: logger.With("component", "audio.speaker")}, nil
}

// Play blocks until the clip has played or ctx is done. d is ignored
// because the decoder knows when the stream ends.
func (p *SpeakerPlayer) Play(ctx context.Context, path string, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("audio: decode %s: %w", path, err)
	}
	defer streamer.Close()

	p.once.Do(func() {
		p.rate = format.SampleRate
		p.initErr = speaker.Init(p.rate, p.rate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("audio: init speaker: %w", p.initErr)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != p.rate {
		s = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))
	p.logger.Debug("playing clip", "path", path, "sample_rate", int(format.SampleRate))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}
