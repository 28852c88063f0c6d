package credentials

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrCommandFailed is returned when the credential helper exits non-zero
	// or cannot be started.
	ErrCommandFailed = errors.New("credentials: helper command failed")

	// ErrEmptyToken is returned when the helper prints no token.
	ErrEmptyToken = errors.New("credentials: empty access token")
)

// Runner executes a command and returns its stdout.
// Tests replace it to avoid spawning processes.
type Runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Command is an oauth2.TokenSource backed by a credential helper command.
// Every call to Token runs the helper; wrap it in oauth2.ReuseTokenSource to cache.
type Command struct {
	name     string
	args     []string
	lifetime time.Duration
	timeout  time.Duration
	run      Runner
	now      func() time.Time
	logger   *slog.Logger
}

// NewCommand parses cfg.Command into a helper invocation.
func NewCommand(cfg Config) *Command {
	line := cfg.Command
	if strings.TrimSpace(line) == "" {
		line = DefaultCommand
	}
	fields := strings.Fields(line)

	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultConfig().Lifetime
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Command{
		name:     fields[0],
		args:     fields[1:],
		lifetime: cfg.Lifetime,
		timeout:  cfg.Timeout,
		run:      execRunner,
		now:      time.Now,
		logger:   cfg.Logger.With("component", "credentials.command"),
	}
}

// SetRunner replaces the process runner.
func (c *Command) SetRunner(r Runner) {
	c.run = r
}

// Token runs the helper and returns its output as a bearer token.
func (c *Command) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := c.now()
	stdout, stderr, err := c.run(ctx, c.name, c.args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrCommandFailed, c.name, msg)
	}

	token := strings.TrimSpace(string(stdout))
	if token == "" {
		return nil, ErrEmptyToken
	}

	c.logger.Debug("fetched access token",
		"prefix", redact(token),
		"took_ms", c.now().Sub(start).Milliseconds(),
	)

	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      start.Add(c.lifetime),
	}, nil
}

// redact keeps enough of a token to recognise it in logs.
func redact(token string) string {
	const keep = 12
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return token[:keep] + "..."
}

var _ oauth2.TokenSource = (*Command)(nil)
