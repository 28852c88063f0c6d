// Package credentials provides OAuth2 bearer tokens for Google Cloud calls.
//
// The default mode shells out to a locally installed credential helper
// (gcloud auth print-access-token) and caches the token until shortly before
// it expires. Application Default Credentials and a static token are also
// supported.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teslashibe/go-clawd/internal/httpc"
)

// CloudPlatformScope is requested when using Application Default Credentials.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Mode selects where tokens come from.
type Mode string

const (
	// ModeGcloud runs a credential helper command.
	ModeGcloud Mode = "gcloud"
	// ModeADC uses Application Default Credentials.
	ModeADC Mode = "adc"
	// ModeStatic uses a fixed access token.
	ModeStatic Mode = "static"
)

// DefaultCommand is the credential helper invoked in gcloud mode.
const DefaultCommand = "gcloud auth print-access-token"

// ErrUnknownMode is returned by New for an unsupported Mode.
var ErrUnknownMode = errors.New("credentials: unknown mode")

// Config selects and configures a token source.
type Config struct {
	Mode Mode

	// Command is the helper command line for ModeGcloud.
	Command string

	// Lifetime is how long a helper token is trusted before re-running the helper.
	Lifetime time.Duration

	// Timeout bounds one helper invocation.
	Timeout time.Duration

	// Token is the access token for ModeStatic.
	Token string

	Logger *slog.Logger
}

// DefaultConfig returns the gcloud helper configuration.
func DefaultConfig() Config {
	return Config{
		Mode:     ModeGcloud,
		Command:  DefaultCommand,
		Lifetime: 50 * time.Minute,
		Timeout:  30 * time.Second,
		Logger:   slog.Default(),
	}
}

// New builds the token source described by cfg.
func New(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	switch cfg.Mode {
	case ModeGcloud, "":
		return oauth2.ReuseTokenSource(nil, NewCommand(cfg)), nil
	case ModeADC:
		ts, err := google.DefaultTokenSource(httpc.WithClient(ctx, nil), CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("credentials: default credentials: %w", err)
		}
		return ts, nil
	case ModeStatic:
		token := strings.TrimSpace(cfg.Token)
		if token == "" {
			return nil, ErrEmptyToken
		}
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}

// HTTPClient returns a client that authenticates every request with ts.
// It is built on the shared httpc client.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(httpc.WithClient(ctx, nil), ts)
}
