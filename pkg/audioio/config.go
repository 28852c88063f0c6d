// Package audioio captures microphone audio and cuts it into utterances.
//
// This package supports multiple backends:
//   - PortAudio - the default input device on Linux, macOS and Windows
//   - WAV - replays a recorded file as if it were spoken into the microphone
//   - Mock - synthetic or scripted audio for tests
//
// A Capturer reads from any Source and returns one utterance per call,
// stopping after a stretch of trailing silence.
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendPortAudio captures from a PortAudio input device.
	BackendPortAudio Backend = "portaudio"
	// BackendWAV replays a WAV file.
	BackendWAV Backend = "wav"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// Config holds audio configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	// Default: "portaudio"
	Backend Backend `mapstructure:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	// Default: 44100 (sent to the recognizer as-is)
	SampleRate int `mapstructure:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	// Default: 1 (mono)
	Channels int `mapstructure:"channels" json:"channels"`

	// BufferDuration is the size of audio buffers.
	// Default: 20ms (882 samples at 44.1kHz)
	BufferDuration time.Duration `mapstructure:"buffer_duration" json:"buffer_duration"`

	// Device is the PortAudio input device name. Empty selects the system default.
	Device string `mapstructure:"device" json:"device"`

	// WAVPath is the file replayed by the WAV backend.
	WAVPath string `mapstructure:"wav_path" json:"wav_path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendPortAudio,
		SampleRate:     44100,
		Channels:       1,
		BufferDuration: 20 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.BufferDuration <= 0 {
		return fmt.Errorf("buffer_duration must be positive, got %v", c.BufferDuration)
	}
	if c.BufferSize() == 0 {
		return fmt.Errorf("buffer_duration %v holds no samples at %d Hz", c.BufferDuration, c.SampleRate)
	}
	if c.Backend == BackendWAV && c.WAVPath == "" {
		return fmt.Errorf("wav backend requires wav_path")
	}
	return nil
}

// BufferSize returns the number of samples per buffer (per channel).
func (c *Config) BufferSize() int {
	return int(float64(c.SampleRate) * c.BufferDuration.Seconds())
}

// BufferBytes returns the size of a buffer in bytes (assuming int16 samples).
func (c *Config) BufferBytes() int {
	return c.BufferSize() * c.Channels * 2 // 2 bytes per int16 sample
}
