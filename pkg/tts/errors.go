package tts

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// Sentinel errors for common error conditions.
var (
	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("tts: empty text")

	// ErrNoAudio is returned when the provider answers without audio content.
	ErrNoAudio = errors.New("tts: no audio in response")

	// ErrNoLanguage is returned when the language code is missing.
	ErrNoLanguage = errors.New("tts: language code required")

	// ErrInvalidGender is returned for an unknown voice gender.
	ErrInvalidGender = errors.New("tts: invalid voice gender")

	// ErrInvalidSpeakingRate is returned when the speaking rate is outside 0.25-4.0.
	ErrInvalidSpeakingRate = errors.New("tts: speaking rate must be between 0.25 and 4.0")

	// ErrInvalidPitch is returned when the pitch is outside -20-20 semitones.
	ErrInvalidPitch = errors.New("tts: pitch must be between -20 and 20")

	// ErrProviderUnavailable is returned when no provider can serve the request.
	ErrProviderUnavailable = errors.New("tts: provider unavailable")
)

// APIError represents an error response from a TTS API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the error code from the API (if provided).
	Code string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tts [%s]: API error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tts [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsRetryable returns true if the request should be retried.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.IsServerError()
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
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
		code := ""
		if len(gerr.Errors) > 0 {
			code = gerr.Errors[0].Reason
		}
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Code:       code,
			Provider:   provider,
		}
	}
	return &ProviderError{Provider: provider, Err: err}
}
