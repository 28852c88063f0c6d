package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-clawd/pkg/audio"
)

const providerGoogle = "google"

// Google implements Provider with the Cloud Text-to-Speech v1 API.
type Google struct {
	config  *Config
	service *texttospeech.Service
	logger  *slog.Logger
}

// NewGoogle creates a Cloud Text-to-Speech provider.
// Credentials and endpoint come from WithClientOptions.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	service, err := texttospeech.NewService(ctx, cfg.ClientOptions...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create tts service: %w", err))
	}

	return &Google{
		config:  cfg,
		service: service,
		logger:  cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (g *Google) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.config.LanguageCode,
			Name:         g.config.VoiceName,
			SsmlGender:   string(g.config.Gender),
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: string(g.config.Encoding),
			SpeakingRate:  g.config.SpeakingRate,
			Pitch:         g.config.Pitch,
		},
	}

	resp, err := g.service.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}
	latency := time.Since(start).Milliseconds()

	if resp.AudioContent == "" {
		return nil, WrapError(providerGoogle, ErrNoAudio)
	}
	data, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio content: %w", err))
	}

	result := &AudioResult{
		Audio:     data,
		Format:    AudioFormat{Encoding: g.config.Encoding},
		CharCount: len(text),
		LatencyMs: latency,
	}
	if g.config.Encoding == EncodingMP3 {
		if d, err := audio.MP3Duration(data); err == nil {
			result.Duration = d
		} else {
			g.logger.Warn("could not measure clip duration", "error", err)
		}
	}

	g.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(data),
		"duration", result.Duration,
		"latency_ms", latency,
	)
	return result, nil
}

// Health lists the voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	resp, err := g.service.Voices.List().LanguageCode(g.config.LanguageCode).Context(ctx).Do()
	if err != nil {
		return WrapError(providerGoogle, err)
	}
	if len(resp.Voices) == 0 {
		return WrapError(providerGoogle, fmt.Errorf("no voices for %s", g.config.LanguageCode))
	}
	return nil
}

// Close releases resources. The REST client holds none.
func (g *Google) Close() error {
	return nil
}

var _ Provider = (*Google)(nil)
