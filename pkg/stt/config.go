package stt

import (
	"log/slog"
	"time"

	"google.golang.org/api/option"
)

// Config holds recognizer configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Audio description sent with every request
	Encoding     Encoding
	SampleRate   int
	LanguageCode string

	// Model selects a recognition model (e.g. "latest_short"). Empty uses the API default.
	Model string

	// Punctuate asks the API to add punctuation to the transcript.
	Punctuate bool

	// Timeout bounds a single recognition call.
	Timeout time.Duration

	// ClientOptions are passed to the Google API client (credentials, endpoint, HTTP client).
	ClientOptions []option.ClientOption

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring recognizers.
type Option func(*Config)

// WithSampleRate sets the sample rate of the submitted audio.
func WithSampleRate(hz int) Option {
	return func(c *Config) {
		c.SampleRate = hz
	}
}

// WithLanguage sets the BCP-47 language code.
func WithLanguage(code string) Option {
	return func(c *Config) {
		c.LanguageCode = code
	}
}

// WithModel selects a recognition model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithPunctuation enables automatic punctuation.
func WithPunctuation(enabled bool) Option {
	return func(c *Config) {
		c.Punctuate = enabled
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithClientOptions appends Google API client options.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Config) {
		c.ClientOptions = append(c.ClientOptions, opts...)
	}
}

// WithLogger sets the structured logger for the recognizer.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns LINEAR16 at 44.1kHz in US English.
func DefaultConfig() *Config {
	return &Config{
		Encoding:     EncodingLinear16,
		SampleRate:   44100,
		LanguageCode: "en-US",
		Timeout:      30 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}
	if c.LanguageCode == "" {
		return ErrNoLanguage
	}
	return nil
}
