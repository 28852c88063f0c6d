package assistant

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-clawd/pkg/audioio"
	"github.com/teslashibe/go-clawd/pkg/stt"
)

func scriptCapturer(t *testing.T, eof bool, segments ...audioio.Segment) *audioio.Capturer {
	t.Helper()
	src := audioio.NewScriptSource(audioio.Config{
		Backend:        audioio.BackendMock,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}, nil, segments...)
	src.EOFAfterScript = eof
	t.Cleanup(func() { src.Close() })

	return audioio.NewCapturer(src, audioio.CaptureConfig{
		EnergyThreshold: 300,
		Timeout:         time.Second,
		PauseThreshold:  300 * time.Millisecond,
		PrefixPadding:   100 * time.Millisecond,
	}, nil)
}

func TestMicListener_Transcribes(t *testing.T) {
	rec := stt.NewMock("what time is it")
	cap := scriptCapturer(t, false,
		audioio.Silence(200*time.Millisecond),
		audioio.Speech(500*time.Millisecond),
		audioio.Silence(time.Second),
	)

	text, err := NewMicListener(cap, rec).Listen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "what time is it", text)

	calls := rec.Calls()
	require.Len(t, calls, 1)
	// 100ms padding + 500ms speech + 100ms padding at 16kHz mono PCM16
	assert.Equal(t, 16000*2*700/1000, calls[0].Bytes)
}

func TestMicListener_TimeoutIsEmpty(t *testing.T) {
	rec := stt.NewMock("never")
	cap := scriptCapturer(t, false, audioio.Silence(5*time.Second))

	text, err := NewMicListener(cap, rec).Listen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 0, rec.CallCount("Recognize"))
}

func TestMicListener_RecognitionFailureIsEmpty(t *testing.T) {
	for _, cause := range []error{
		stt.ErrNoTranscript,
		&stt.APIError{StatusCode: 503, Message: "unavailable", Provider: "google"},
	} {
		cap := scriptCapturer(t, false, audioio.Speech(200*time.Millisecond), audioio.Silence(time.Second))

		text, err := NewMicListener(cap, stt.WithError(cause)).Listen(context.Background())
		require.NoError(t, err)
		assert.Empty(t, text)
	}
}

func TestMicListener_EOF(t *testing.T) {
	cap := scriptCapturer(t, true, audioio.Silence(200*time.Millisecond))

	_, err := NewMicListener(cap, stt.NewMock("x")).Listen(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestMicListener_RecordDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "utterances")
	cap := scriptCapturer(t, false, audioio.Speech(300*time.Millisecond), audioio.Silence(time.Second))

	_, err := NewMicListener(cap, stt.NewMock("hello"), WithRecordDir(dir)).Listen(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".wav"))

	samples, err := audioio.ReadWAV(filepath.Join(dir, entries[0].Name()), 16000)
	require.NoError(t, err)
	assert.Len(t, samples, 16000*400/1000) // 300ms speech + 100ms trailing padding
}

func TestMicListener_Cancelled(t *testing.T) {
	cap := scriptCapturer(t, false, audioio.Silence(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMicListener(cap, stt.NewMock("x")).Listen(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestLineListener(t *testing.T) {
	var prompt strings.Builder
	l := NewLineListener(strings.NewReader("hello\n\n  world  \n"), &prompt, nil)
	ctx := context.Background()

	for _, want := range []string{"hello", "", "world"} {
		got, err := l.Listen(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := l.Listen(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "> > > > ", prompt.String())
}

func TestLineListener_Cancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	l := NewLineListener(r, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Listen(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
