package stt

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	speech "google.golang.org/api/speech/v1"
)

const providerGoogle = "google"

// Google implements Recognizer with the Cloud Speech-to-Text v1 API.
type Google struct {
	config  *Config
	service *speech.Service
	logger  *slog.Logger
}

// NewGoogle creates a Cloud Speech-to-Text recognizer.
// Credentials and endpoint come from WithClientOptions.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	service, err := speech.NewService(ctx, cfg.ClientOptions...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create speech service: %w", err))
	}

	return &Google{
		config:  cfg,
		service: service,
		logger:  cfg.Logger.With("component", "stt.google"),
	}, nil
}

// Recognize sends the audio in one synchronous request and returns the first alternative.
func (g *Google) Recognize(ctx context.Context, audio []byte) (*Result, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:                   string(g.config.Encoding),
			SampleRateHertz:            int64(g.config.SampleRate),
			LanguageCode:               g.config.LanguageCode,
			Model:                      g.config.Model,
			EnableAutomaticPunctuation: g.config.Punctuate,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audio),
		},
	}

	resp, err := g.service.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}
	latency := time.Since(start).Milliseconds()

	// Only the first alternative of the first result counts.
	if len(resp.Results) == 0 || len(resp.Results[0].Alternatives) == 0 {
		g.logger.Debug("no speech recognized", "latency_ms", latency)
		return nil, ErrNoTranscript
	}
	r := resp.Results[0]
	alt := r.Alternatives[0]
	transcript := strings.TrimSpace(alt.Transcript)
	if transcript == "" {
		g.logger.Debug("no speech recognized", "latency_ms", latency)
		return nil, ErrNoTranscript
	}

	lang := r.LanguageCode
	if lang == "" {
		lang = g.config.LanguageCode
	}

	g.logger.Debug("recognized speech",
		"chars", len(transcript),
		"confidence", alt.Confidence,
		"latency_ms", latency,
	)
	return &Result{
		Transcript:   transcript,
		Confidence:   alt.Confidence,
		LanguageCode: lang,
		LatencyMs:    latency,
	}, nil
}

// Close releases resources. The REST client holds none.
func (g *Google) Close() error {
	return nil
}

var _ Recognizer = (*Google)(nil)
