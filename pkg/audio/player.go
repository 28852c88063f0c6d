package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"
)

// Mode selects how clips are played.
type Mode string

const (
	// ModeOpen hands the clip to the OS default handler and waits out its duration.
	ModeOpen Mode = "open"
	// ModeCommand runs a configured player program and waits for it to exit.
	ModeCommand Mode = "command"
	// ModeSpeaker decodes the clip and plays it through the sound card in-process.
	ModeSpeaker Mode = "speaker"
)

var (
	// ErrNoCommand is returned when command mode has no program configured.
	ErrNoCommand = errors.New("audio: player command required")

	// ErrDetached is returned when the clip was handed to a program that may
	// still be reading it after Play returns. The clip must stay on disk.
	ErrDetached = errors.New("audio: playback outlives Play")
)

// Player plays an audio file and blocks until playback is over.
type Player interface {
	// Play plays the clip at path. d is the clip length if already known;
	// zero makes the player work it out.
	Play(ctx context.Context, path string, d time.Duration) error
}

// New creates a Player for mode. command is only used by ModeCommand.
func New(mode Mode, command []string, logger *slog.Logger) (Player, error) {
	switch mode {
	case ModeOpen, "":
		return NewOpenPlayer(logger), nil
	case ModeCommand:
		return NewCommandPlayer(command, logger)
	case ModeSpeaker:
		return NewSpeakerPlayer(logger)
	default:
		return nil, fmt.Errorf("audio: unknown playback mode %q", mode)
	}
}

// OpenCommand returns the command that opens path with the OS default handler.
func OpenCommand(goos, path string) []string {
	switch goos {
	case "windows":
		// The empty argument is the window title consumed by start.
		return []string{"cmd", "/c", "start", "", path}
	case "darwin":
		return []string{"open", path}
	default:
		return []string{"xdg-open", path}
	}
}

// CommandPlayer plays clips by launching an external program.
//
// In open mode the program is the OS default handler, which returns
// immediately, so Play sleeps for the clip duration instead of waiting for
// the process. In command mode Play waits for the program to exit.
type CommandPlayer struct {
	command []string // nil selects the OS default handler
	logger  *slog.Logger

	// start launches a command without waiting for it.
	start func(args []string) error
}

// NewOpenPlayer plays clips through the OS default handler.
func NewOpenPlayer(logger *slog.Logger) *CommandPlayer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandPlayer{
		logger: logger.With("component", "audio.open"),
		start:  startDetached,
	}
}

// NewCommandPlayer plays clips with command followed by the clip path,
// e.g. []string{"mpg123", "-q"}.
func NewCommandPlayer(command []string, logger *slog.Logger) (*CommandPlayer, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, ErrNoCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandPlayer{
		command: append([]string(nil), command...),
		logger:  logger.With("component", "audio.command"),
		start:   startDetached,
	}, nil
}

func startDetached(args []string) error {
	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	// Reap the handler once it exits.
	go cmd.Wait()
	return nil
}

// Play plays the clip and returns once it has finished or ctx is done.
// In open mode with no known duration it returns ErrDetached right after
// launching the handler.
func (p *CommandPlayer) Play(ctx context.Context, path string, d time.Duration) error {
	if p.command != nil {
		return p.runAndWait(ctx, path)
	}
	return p.openAndSleep(ctx, path, d)
}

func (p *CommandPlayer) runAndWait(ctx context.Context, path string) error {
	args := append(append([]string(nil), p.command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)

	p.logger.Debug("playing clip", "path", path, "command", p.command[0])
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("audio: %s: %w: %s", p.command[0], err, out)
	}
	return nil
}

func (p *CommandPlayer) openAndSleep(ctx context.Context, path string, d time.Duration) error {
	if d <= 0 {
		var err error
		d, err = MP3FileDuration(path)
		if err != nil {
			p.logger.Warn("could not determine clip duration", "path", path, "error", err)
		}
	}

	args := OpenCommand(runtime.GOOS, path)
	if err := p.start(args); err != nil {
		return fmt.Errorf("audio: %s: %w", args[0], err)
	}
	p.logger.Debug("opened clip", "path", path, "duration", d)

	if d <= 0 {
		return ErrDetached
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Player = (*CommandPlayer)(nil)
