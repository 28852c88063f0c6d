package assistant

import (
	"errors"
	"fmt"
	"log/slog"
)

// FailurePolicy decides what happens to a turn whose generation failed.
type FailurePolicy string

const (
	// FailureSpeak records ErrorReply as the assistant turn and speaks it.
	FailureSpeak FailurePolicy = "speak"
	// FailureSilent logs the failure; memory keeps only the user turn.
	FailureSilent FailurePolicy = "silent"
)

// Valid reports whether p is a known policy.
func (p FailurePolicy) Valid() bool {
	return p == FailureSpeak || p == FailureSilent
}

// ErrNegativeLimit is returned when HistoryLimit is below zero.
var ErrNegativeLimit = errors.New("assistant: history limit must not be negative")

// Config holds assistant configuration.
type Config struct {
	// HistoryLimit is the number of turns kept in memory. Zero keeps all.
	HistoryLimit int

	// MaxTokens caps reply length. Zero uses the provider default.
	MaxTokens int

	// FailurePolicy applies when the model cannot produce a reply.
	FailurePolicy FailurePolicy

	// MaxTurns stops Run after this many turns. Zero runs until cancelled.
	MaxTurns int

	Observers []Observer
	Logger    *slog.Logger
}

// Option is a functional option for configuring the assistant.
type Option func(*Config)

// WithHistoryLimit sets how many turns are kept.
func WithHistoryLimit(n int) Option {
	return func(c *Config) {
		c.HistoryLimit = n
	}
}

// WithMaxTokens sets the reply token cap.
func WithMaxTokens(n int) Option {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithFailurePolicy sets the failure policy.
func WithFailurePolicy(p FailurePolicy) Option {
	return func(c *Config) {
		c.FailurePolicy = p
	}
}

// WithMaxTurns bounds Run.
func WithMaxTurns(n int) Option {
	return func(c *Config) {
		c.MaxTurns = n
	}
}

// WithObserver adds an event observer.
func WithObserver(o Observer) Option {
	return func(c *Config) {
		c.Observers = append(c.Observers, o)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig keeps the last 5 turns and speaks failures.
func DefaultConfig() *Config {
	return &Config{
		HistoryLimit:  5,
		MaxTokens:     1256,
		FailurePolicy: FailureSpeak,
		Logger:        slog.Default(),
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
	if c.HistoryLimit < 0 {
		return ErrNegativeLimit
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("assistant: max tokens must not be negative, got %d", c.MaxTokens)
	}
	if !c.FailurePolicy.Valid() {
		return fmt.Errorf("assistant: unknown failure policy %q", c.FailurePolicy)
	}
	if c.MaxTurns < 0 {
		return fmt.Errorf("assistant: max turns must not be negative, got %d", c.MaxTurns)
	}
	return nil
}
