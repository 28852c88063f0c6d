// Package audio writes synthesized clips to disk and plays them.
package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always decodes to 16-bit stereo.
const mp3BytesPerFrame = 4

// MP3Duration returns the playback length of an MP3 clip.
func MP3Duration(data []byte) (time.Duration, error) {
	return mp3Duration(bytes.NewReader(data))
}

// MP3FileDuration returns the playback length of an MP3 file.
func MP3FileDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return mp3Duration(f)
}

func mp3Duration(r io.ReadSeeker) (time.Duration, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}
	length := dec.Length()
	if length < 0 {
		return 0, fmt.Errorf("decode mp3: unknown length")
	}
	if dec.SampleRate() <= 0 {
		return 0, fmt.Errorf("decode mp3: invalid sample rate %d", dec.SampleRate())
	}
	frames := length / mp3BytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate()), nil
}
