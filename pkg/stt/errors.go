package stt

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoTranscript is returned when the audio contained no recognizable speech.
	ErrNoTranscript = errors.New("stt: no transcript")

	// ErrEmptyAudio is returned when Recognize is called without audio.
	ErrEmptyAudio = errors.New("stt: empty audio")

	// ErrInvalidSampleRate is returned when the sample rate is not positive.
	ErrInvalidSampleRate = errors.New("stt: sample rate must be positive")

	// ErrNoLanguage is returned when the language code is missing.
	ErrNoLanguage = errors.New("stt: language code required")

	// ErrProviderUnavailable is returned when a recognizer cannot serve requests.
	ErrProviderUnavailable = errors.New("stt: provider unavailable")
)

// APIError represents an error response from a speech API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Status is the canonical status from the API (e.g. INVALID_ARGUMENT), if provided.
	Status string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("stt [%s]: API error %d (%s): %s", e.Provider, e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("stt [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("stt [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with provider context.
// Google API errors are converted to *APIError.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Status:     reason(gerr),
			Provider:   provider,
		}
	}
	return &ProviderError{Provider: provider, Err: err}
}

func reason(gerr *googleapi.Error) string {
	for _, item := range gerr.Errors {
		if item.Reason != "" {
			return item.Reason
		}
	}
	return ""
}
