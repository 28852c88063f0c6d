package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// ErrWaitTimeout is returned when no speech starts within CaptureConfig.Timeout.
var ErrWaitTimeout = errors.New("listening timed out while waiting for phrase to start")

// CaptureConfig controls how a Capturer finds the start and end of an utterance.
type CaptureConfig struct {
	// EnergyThreshold is the chunk RMS (int16 units) above which audio counts as speech.
	EnergyThreshold float64 `mapstructure:"energy_threshold" json:"energy_threshold"`

	// Timeout is the longest wait for speech to start. Zero waits forever.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`

	// PauseThreshold is the trailing silence that ends an utterance.
	PauseThreshold time.Duration `mapstructure:"pause" json:"pause"`

	// PhraseLimit caps utterance length. Zero means no cap.
	PhraseLimit time.Duration `mapstructure:"phrase_limit" json:"phrase_limit"`

	// PrefixPadding is the non-speaking audio kept on either side of the phrase.
	PrefixPadding time.Duration `mapstructure:"prefix_padding" json:"prefix_padding"`
}

// DefaultCaptureConfig returns the listening defaults: 10s to start talking,
// 3s of silence to finish.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		EnergyThreshold: 300,
		Timeout:         10 * time.Second,
		PauseThreshold:  3 * time.Second,
		PrefixPadding:   500 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *CaptureConfig) Validate() error {
	if c.EnergyThreshold <= 0 {
		return fmt.Errorf("energy_threshold must be positive, got %v", c.EnergyThreshold)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %v", c.Timeout)
	}
	if c.PauseThreshold <= 0 {
		return fmt.Errorf("pause must be positive, got %v", c.PauseThreshold)
	}
	if c.PhraseLimit < 0 {
		return fmt.Errorf("phrase_limit must not be negative, got %v", c.PhraseLimit)
	}
	if c.PrefixPadding < 0 || c.PrefixPadding > c.PauseThreshold {
		return fmt.Errorf("prefix_padding must be between 0 and pause, got %v", c.PrefixPadding)
	}
	return nil
}

// Utterance is one captured phrase of interleaved PCM16 audio.
type Utterance struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// PCM returns the utterance as LINEAR16 little-endian bytes.
func (u *Utterance) PCM() []byte {
	return SamplesToBytes(u.Samples)
}

// Duration returns the length of the utterance.
func (u *Utterance) Duration() time.Duration {
	return samplesDuration(len(u.Samples), u.SampleRate, u.Channels)
}

// Capturer cuts utterances out of a Source using an energy threshold.
type Capturer struct {
	src    Source
	cfg    CaptureConfig
	logger *slog.Logger
}

// NewCapturer creates a Capturer reading from src.
func NewCapturer(src Source, cfg CaptureConfig, logger *slog.Logger) *Capturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capturer{
		src:    src,
		cfg:    cfg,
		logger: logger.With("component", "audioio.capture"),
	}
}

// Source returns the underlying audio source.
func (c *Capturer) Source() Source {
	return c.src
}

// Capture blocks until one utterance has been recorded.
//
// The source is started for the duration of the call, so audio spoken
// between captures is not heard. Capture returns ErrWaitTimeout when speech
// does not start in time, and io.EOF when the source runs dry before any
// speech. A source that runs dry mid-phrase yields what was heard.
func (c *Capturer) Capture(ctx context.Context) (*Utterance, error) {
	if err := c.src.Start(ctx); err != nil {
		return nil, fmt.Errorf("start source: %w", err)
	}
	defer func() {
		if err := c.src.Stop(); err != nil {
			c.logger.Warn("failed to stop source", "error", err)
		}
	}()

	var (
		preroll  []AudioChunk
		prerollD time.Duration
		waited   time.Duration
		speaking bool
		samples  []int16
		phrase   time.Duration
		silence  time.Duration
	)

	srcCfg := c.src.Config()
	for {
		chunk, err := c.src.Read(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, io.EOF) && speaking {
				return c.finish(samples, silence, srcCfg), nil
			}
			return nil, err
		}

		d := chunk.Duration()
		loud := RMS(chunk.Samples) > c.cfg.EnergyThreshold

		if !speaking {
			if loud {
				speaking = true
				for _, p := range preroll {
					samples = append(samples, p.Samples...)
				}
				samples = append(samples, chunk.Samples...)
				phrase = d
				c.logger.Debug("phrase started", "waited", waited)
				if c.cfg.PhraseLimit > 0 && phrase >= c.cfg.PhraseLimit {
					return c.finish(samples, 0, srcCfg), nil
				}
				continue
			}

			waited += d
			preroll = append(preroll, chunk)
			prerollD += d
			for len(preroll) > 0 && prerollD-preroll[0].Duration() >= c.cfg.PrefixPadding {
				prerollD -= preroll[0].Duration()
				preroll = preroll[1:]
			}
			if c.cfg.Timeout > 0 && waited >= c.cfg.Timeout {
				return nil, ErrWaitTimeout
			}
			continue
		}

		samples = append(samples, chunk.Samples...)
		phrase += d
		if loud {
			silence = 0
		} else {
			silence += d
		}

		if silence >= c.cfg.PauseThreshold {
			return c.finish(samples, silence, srcCfg), nil
		}
		if c.cfg.PhraseLimit > 0 && phrase >= c.cfg.PhraseLimit {
			return c.finish(samples, silence, srcCfg), nil
		}
	}
}

// finish drops trailing silence beyond PrefixPadding.
func (c *Capturer) finish(samples []int16, silence time.Duration, cfg Config) *Utterance {
	if extra := silence - c.cfg.PrefixPadding; extra > 0 {
		n := int(extra.Seconds()*float64(cfg.SampleRate)) * cfg.Channels
		n = min(n, len(samples))
		samples = samples[:len(samples)-n]
	}

	u := &Utterance{
		Samples:    samples,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	}
	c.logger.Debug("phrase captured", "duration", u.Duration())
	return u
}
