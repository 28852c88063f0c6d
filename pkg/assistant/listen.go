package assistant

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-clawd/pkg/audioio"
	"github.com/teslashibe/go-clawd/pkg/stt"
)

// Listener produces the user's next utterance as text.
//
// An empty string with a nil error means nothing usable was heard and the
// turn should be skipped. io.EOF means the input is exhausted.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context) (string, error)

// Listen calls f(ctx).
func (f ListenerFunc) Listen(ctx context.Context) (string, error) {
	return f(ctx)
}

// MicListener records one utterance and transcribes it.
type MicListener struct {
	capturer   *audioio.Capturer
	recognizer stt.Recognizer
	recordDir  string
	logger     *slog.Logger
}

// MicOption configures a MicListener.
type MicOption func(*MicListener)

// WithRecordDir archives every captured utterance as a WAV file in dir.
func WithRecordDir(dir string) MicOption {
	return func(m *MicListener) {
		m.recordDir = dir
	}
}

// WithMicLogger sets the structured logger.
func WithMicLogger(logger *slog.Logger) MicOption {
	return func(m *MicListener) {
		m.logger = logger
	}
}

// NewMicListener creates a listener over a capturer and a recognizer.
func NewMicListener(capturer *audioio.Capturer, recognizer stt.Recognizer, opts ...MicOption) *MicListener {
	m := &MicListener{
		capturer:   capturer,
		recognizer: recognizer,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "assistant.mic")
	return m
}

// Listen captures one utterance and returns its transcript.
// A capture timeout or a failed recognition yields "" and is logged.
func (m *MicListener) Listen(ctx context.Context) (string, error) {
	m.logger.Info("Listening...")
	u, err := m.capturer.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, audioio.ErrWaitTimeout) {
			m.logger.Info("Listening timed out while waiting for phrase to start")
			return "", nil
		}
		return "", fmt.Errorf("capture: %w", err)
	}

	if m.recordDir != "" {
		m.archive(u)
	}

	m.logger.Info("Recognizing...", "audio", u.Duration().Round(time.Millisecond))
	res, err := m.recognizer.Recognize(ctx, u.PCM())
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, stt.ErrNoTranscript) {
			m.logger.Info("Could not understand audio")
		} else {
			var apiErr *stt.APIError
			transient := errors.As(err, &apiErr) && apiErr.IsRetryable()
			m.logger.Error("Could not request results from the speech service", "error", err, "transient", transient)
		}
		return "", nil
	}

	m.logger.Info("You said", "text", res.Transcript, "confidence", res.Confidence, "latency_ms", res.LatencyMs)
	return res.Transcript, nil
}

func (m *MicListener) archive(u *audioio.Utterance) {
	if err := os.MkdirAll(m.recordDir, 0o755); err != nil {
		m.logger.Warn("failed to create record dir", "error", err)
		return
	}
	path := filepath.Join(m.recordDir, "utterance-"+time.Now().Format("20060102-150405.000")+".wav")
	if err := audioio.WriteWAV(path, u); err != nil {
		m.logger.Warn("failed to archive utterance", "path", path, "error", err)
		return
	}
	m.logger.Debug("utterance archived", "path", path)
}

// LineListener reads one utterance per line of text, for running without a
// microphone.
type LineListener struct {
	r      io.Reader
	prompt io.Writer
	logger *slog.Logger

	once  sync.Once
	lines chan string
	err   error
}

// NewLineListener reads lines from r. When prompt is non-nil a "> " prompt is
// written to it before each read.
func NewLineListener(r io.Reader, prompt io.Writer, logger *slog.Logger) *LineListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineListener{
		r:      r,
		prompt: prompt,
		logger: logger.With("component", "assistant.lines"),
		lines:  make(chan string),
	}
}

func (l *LineListener) scan() {
	defer close(l.lines)
	sc := bufio.NewScanner(l.r)
	for sc.Scan() {
		l.lines <- sc.Text()
	}
	l.err = sc.Err()
}

// Listen returns the next line, trimmed. It returns io.EOF at end of input.
func (l *LineListener) Listen(ctx context.Context) (string, error) {
	l.once.Do(func() { go l.scan() })

	if l.prompt != nil {
		fmt.Fprint(l.prompt, "> ")
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.lines:
		if !ok {
			if l.err != nil {
				return "", fmt.Errorf("read input: %w", l.err)
			}
			return "", io.EOF
		}
		line = strings.TrimSpace(line)
		l.logger.Debug("line read", "text", line)
		return line, nil
	}
}

var (
	_ Listener = (*MicListener)(nil)
	_ Listener = (*LineListener)(nil)
)
