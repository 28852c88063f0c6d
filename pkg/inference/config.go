package inference

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAnthropicVersion is the API version Vertex expects in the request body.
const DefaultAnthropicVersion = "vertex-2023-10-16"

// Config holds provider configuration.
type Config struct {
	// Endpoint is the full rawPredict URL. See EndpointURL.
	Endpoint string

	// AnthropicVersion is sent as "anthropic_version" in every request.
	AnthropicVersion string

	// Request defaults
	MaxTokens   int
	Temperature *float64
	System      string

	// TokenSource supplies bearer tokens. Tokens are requested once per call.
	TokenSource oauth2.TokenSource

	// HTTPClient sends requests. Nil uses the shared httpc client.
	HTTPClient *http.Client

	// Timeouts
	Timeout time.Duration

	// Retry configuration
	MaxRetries int
	RetryDelay time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithEndpoint sets the rawPredict URL.
func WithEndpoint(url string) Option {
	return func(c *Config) { c.Endpoint = url }
}

// WithAnthropicVersion overrides the anthropic_version body field.
func WithAnthropicVersion(v string) Option {
	return func(c *Config) { c.AnthropicVersion = v }
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = &t }
}

// WithSystem sets a default system prompt.
func WithSystem(prompt string) Option {
	return func(c *Config) { c.System = prompt }
}

// WithTokenSource sets the credentials used for the Authorization header.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Config) { c.TokenSource = ts }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retry behavior.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns defaults matching a single non-streaming rawPredict call.
func DefaultConfig() *Config {
	return &Config{
		AnthropicVersion: DefaultAnthropicVersion,
		MaxTokens:        1256,
		Timeout:          60 * time.Second,
		MaxRetries:       0,
		RetryDelay:       500 * time.Millisecond,
		Logger:           slog.Default(),
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
	if c.Endpoint == "" {
		return ErrNoEndpoint
	}
	if c.TokenSource == nil {
		return ErrNoTokenSource
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("inference: max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("inference: max_retries must not be negative, got %d", c.MaxRetries)
	}
	return nil
}

// EndpointURL builds the Vertex AI rawPredict URL for an Anthropic model.
func EndpointURL(projectID, location, model string) string {
	host := location + "-aiplatform.googleapis.com"
	if location == "global" {
		host = "aiplatform.googleapis.com"
	}
	return fmt.Sprintf("https://%s/v1/projects/%s/locations/%s/publishers/anthropic/models/%s:rawPredict",
		host, projectID, location, model)
}
