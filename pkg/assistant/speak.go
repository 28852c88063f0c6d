package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/teslashibe/go-clawd/pkg/audio"
	"github.com/teslashibe/go-clawd/pkg/tts"
)

// Speaker voices a reply and returns once it has been heard.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// VoiceSpeaker synthesizes text, writes the clip to disk and plays it.
type VoiceSpeaker struct {
	provider tts.Provider
	out      *audio.OutputDir
	player   audio.Player
	keep     bool
	logger   *slog.Logger
}

// SpeakerOption configures a VoiceSpeaker.
type SpeakerOption func(*VoiceSpeaker)

// WithKeepAudio leaves clips on disk after playback.
func WithKeepAudio(keep bool) SpeakerOption {
	return func(s *VoiceSpeaker) {
		s.keep = keep
	}
}

// WithSpeakerLogger sets the structured logger.
func WithSpeakerLogger(logger *slog.Logger) SpeakerOption {
	return func(s *VoiceSpeaker) {
		s.logger = logger
	}
}

// NewVoiceSpeaker creates a speaker from a synthesis provider, a clip
// directory and a player.
func NewVoiceSpeaker(provider tts.Provider, out *audio.OutputDir, player audio.Player, opts ...SpeakerOption) *VoiceSpeaker {
	s := &VoiceSpeaker{
		provider: provider,
		out:      out,
		player:   player,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "assistant.voice")
	return s
}

// Speak synthesizes text and blocks until the clip has played.
func (s *VoiceSpeaker) Speak(ctx context.Context, text string) error {
	result, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		var apiErr *tts.APIError
		if errors.As(err, &apiErr) && apiErr.IsRetryable() {
			s.logger.Warn("speech service busy, reply not voiced", "status", apiErr.StatusCode)
		}
		return fmt.Errorf("synthesize: %w", err)
	}

	path, err := s.out.Write(result.Audio)
	if err != nil {
		return err
	}
	keep := s.keep
	defer func() {
		if keep {
			return
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove clip", "path", path, "error", err)
		}
	}()

	s.logger.Debug("playing clip", "path", path, "duration", result.Duration, "latency_ms", result.LatencyMs)
	err = s.player.Play(ctx, path, result.Duration)
	switch {
	case errors.Is(err, audio.ErrDetached):
		// The handler may open the file after Play returns.
		keep = true
		s.logger.Info("clip left on disk, playback length unknown", "path", path)
		return nil
	case err != nil:
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

var _ Speaker = (*VoiceSpeaker)(nil)
