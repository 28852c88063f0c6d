// Package tts provides text-to-speech synthesis for assistant replies.
//
// Providers return the complete audio clip for a piece of text. Google
// calls the Cloud Text-to-Speech v1 API; Mock is provided for tests.
//
// Example usage:
//
//	provider, _ := tts.NewGoogle(ctx,
//	    tts.WithLanguage("en-US"),
//	    tts.WithGender(tts.GenderNeutral),
//	    tts.WithClientOptions(option.WithHTTPClient(client)),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Hello world")
//	// result.Audio contains MP3 bytes
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and credentials.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio data.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the playback duration, when it could be determined.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round-trip time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec.
	Encoding Encoding

	// SampleRate in Hz, if known.
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int
}

// Encoding represents audio encoding types.
// Values match the Cloud Text-to-Speech AudioEncoding enum.
type Encoding string

const (
	EncodingMP3      Encoding = "MP3"
	EncodingLinear16 Encoding = "LINEAR16" // WAV container with PCM16
	EncodingOggOpus  Encoding = "OGG_OPUS"
)

// Extension returns the file extension for clips in this encoding.
func (e Encoding) Extension() string {
	switch e {
	case EncodingLinear16:
		return ".wav"
	case EncodingOggOpus:
		return ".ogg"
	default:
		return ".mp3"
	}
}

// Gender is the SSML voice gender requested from the provider.
type Gender string

const (
	GenderNeutral     Gender = "NEUTRAL"
	GenderFemale      Gender = "FEMALE"
	GenderMale        Gender = "MALE"
	GenderUnspecified Gender = "SSML_VOICE_GENDER_UNSPECIFIED"
)

// Valid reports whether g is a known gender.
func (g Gender) Valid() bool {
	switch g {
	case GenderNeutral, GenderFemale, GenderMale, GenderUnspecified:
		return true
	}
	return false
}
