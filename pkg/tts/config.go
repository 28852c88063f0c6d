package tts

import (
	"log/slog"
	"time"

	"google.golang.org/api/option"
)

// Config holds TTS provider configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Voice selection
	LanguageCode string
	VoiceName    string // optional; empty lets the API pick by language and gender
	Gender       Gender

	// Audio output
	Encoding     Encoding
	SpeakingRate float64 // 0.25-4.0, 1.0 is normal speed
	Pitch        float64 // semitones, -20.0-20.0

	// Timeouts
	Timeout time.Duration

	// ClientOptions are passed to the Google API client (credentials, endpoint, HTTP client).
	ClientOptions []option.ClientOption

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring TTS providers.
type Option func(*Config)

// WithLanguage sets the BCP-47 language code.
func WithLanguage(code string) Option {
	return func(c *Config) {
		c.LanguageCode = code
	}
}

// WithVoice selects a named voice (e.g. "en-US-Neural2-C").
func WithVoice(name string) Option {
	return func(c *Config) {
		c.VoiceName = name
	}
}

// WithGender sets the requested voice gender.
func WithGender(g Gender) Option {
	return func(c *Config) {
		c.Gender = g
	}
}

// WithEncoding sets the audio output encoding.
func WithEncoding(enc Encoding) Option {
	return func(c *Config) {
		c.Encoding = enc
	}
}

// WithSpeakingRate sets the speaking rate.
func WithSpeakingRate(rate float64) Option {
	return func(c *Config) {
		c.SpeakingRate = rate
	}
}

// WithPitch sets the pitch offset in semitones.
func WithPitch(pitch float64) Option {
	return func(c *Config) {
		c.Pitch = pitch
	}
}

// WithTimeout sets the request timeout.
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

// WithLogger sets the structured logger for the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a neutral US English MP3 voice.
func DefaultConfig() *Config {
	return &Config{
		LanguageCode: "en-US",
		Gender:       GenderNeutral,
		Encoding:     EncodingMP3,
		SpeakingRate: 1.0,
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

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.LanguageCode == "" {
		return ErrNoLanguage
	}
	if !c.Gender.Valid() {
		return ErrInvalidGender
	}
	if c.SpeakingRate != 0 && (c.SpeakingRate < 0.25 || c.SpeakingRate > 4.0) {
		return ErrInvalidSpeakingRate
	}
	if c.Pitch < -20 || c.Pitch > 20 {
		return ErrInvalidPitch
	}
	return nil
}
