package assistant

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-clawd/pkg/audio"
	"github.com/teslashibe/go-clawd/pkg/tts"
)

type fakePlayer struct {
	paths    []string
	duration time.Duration
	existed  bool
	err      error
}

func (p *fakePlayer) Play(ctx context.Context, path string, d time.Duration) error {
	p.paths = append(p.paths, path)
	p.duration = d
	_, statErr := os.Stat(path)
	p.existed = statErr == nil
	return p.err
}

func newOutputDir(t *testing.T) *audio.OutputDir {
	t.Helper()
	out, err := audio.NewOutputDir(t.TempDir(), ".mp3")
	require.NoError(t, err)
	return out
}

func TestVoiceSpeaker_PlaysAndRemovesClip(t *testing.T) {
	provider := tts.NewMock()
	player := &fakePlayer{}
	s := NewVoiceSpeaker(provider, newOutputDir(t), player)

	require.NoError(t, s.Speak(context.Background(), "Hello"))

	require.Len(t, player.paths, 1)
	assert.True(t, player.existed, "clip should exist while playing")
	assert.Equal(t, 5*60*time.Millisecond, player.duration)

	_, err := os.Stat(player.paths[0])
	assert.True(t, os.IsNotExist(err), "clip should be removed after playback")
	assert.Equal(t, []string{"Hello"}, provider.Spoken())
}

func TestVoiceSpeaker_KeepAudio(t *testing.T) {
	player := &fakePlayer{}
	s := NewVoiceSpeaker(tts.NewMock(), newOutputDir(t), player, WithKeepAudio(true))

	require.NoError(t, s.Speak(context.Background(), "one"))
	require.NoError(t, s.Speak(context.Background(), "two"))

	require.Len(t, player.paths, 2)
	assert.NotEqual(t, player.paths[0], player.paths[1])
	for _, p := range player.paths {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Contains(t, string(data), "ID3mock:")
	}
}

func TestVoiceSpeaker_SynthesisError(t *testing.T) {
	player := &fakePlayer{}
	s := NewVoiceSpeaker(tts.WithError(tts.ErrProviderUnavailable), newOutputDir(t), player)

	err := s.Speak(context.Background(), "Hello")
	assert.ErrorIs(t, err, tts.ErrProviderUnavailable)
	assert.Empty(t, player.paths)
}

func TestVoiceSpeaker_PlaybackError(t *testing.T) {
	player := &fakePlayer{err: errors.New("exec: xdg-open not found")}
	s := NewVoiceSpeaker(tts.NewMock(), newOutputDir(t), player)

	err := s.Speak(context.Background(), "Hello")
	assert.ErrorContains(t, err, "xdg-open")

	_, statErr := os.Stat(player.paths[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestVoiceSpeaker_DetachedPlaybackKeepsClip(t *testing.T) {
	player := &fakePlayer{err: audio.ErrDetached}
	s := NewVoiceSpeaker(tts.NewMock(), newOutputDir(t), player)

	require.NoError(t, s.Speak(context.Background(), "Hello"))

	require.Len(t, player.paths, 1)
	_, err := os.Stat(player.paths[0])
	assert.NoError(t, err, "clip must outlive a detached handler")
}

func TestVoiceSpeaker_RateLimited(t *testing.T) {
	player := &fakePlayer{}
	busy := &tts.APIError{StatusCode: 429, Message: "quota", Provider: "google"}
	s := NewVoiceSpeaker(tts.WithError(busy), newOutputDir(t), player)

	err := s.Speak(context.Background(), "Hello")
	var apiErr *tts.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsRetryable())
	assert.Empty(t, player.paths)
}
