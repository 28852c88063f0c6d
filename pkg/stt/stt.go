// Package stt turns recorded speech into text.
//
// Recognizers accept raw LINEAR16 audio and return the best transcript.
// The Google implementation calls the Cloud Speech-to-Text v1 REST API;
// Mock is provided for tests.
//
// Example usage:
//
//	rec, _ := stt.NewGoogle(ctx,
//	    stt.WithSampleRate(44100),
//	    stt.WithClientOptions(option.WithHTTPClient(client)),
//	)
//	defer rec.Close()
//
//	result, err := rec.Recognize(ctx, utterance.PCM())
package stt

import "context"

// Recognizer converts audio into a transcript.
type Recognizer interface {
	// Recognize transcribes a complete utterance of LINEAR16 audio.
	// Returns ErrNoTranscript when the audio contained no recognizable speech.
	Recognize(ctx context.Context, audio []byte) (*Result, error)

	// Close releases any resources held by the recognizer.
	Close() error
}

// Result is the outcome of a recognition call.
type Result struct {
	// Transcript is the top alternative of the first result.
	Transcript string

	// Confidence is the recognizer's confidence in Transcript (0.0-1.0), if reported.
	Confidence float64

	// LanguageCode is the language the recognizer detected or was asked for.
	LanguageCode string

	// LatencyMs is the round-trip time of the recognition call.
	LatencyMs int64
}

// Encoding is an audio encoding accepted by the recognizer.
type Encoding string

const (
	// EncodingLinear16 is uncompressed 16-bit signed little-endian PCM.
	EncodingLinear16 Encoding = "LINEAR16"
	// EncodingFLAC is lossless FLAC.
	EncodingFLAC Encoding = "FLAC"
)
