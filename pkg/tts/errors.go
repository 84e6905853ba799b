package tts

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("tts: API key required")

	// ErrNoVoiceID is returned when the voice ID is missing.
	ErrNoVoiceID = errors.New("tts: voice ID required")

	// ErrUnsupportedVoice is returned for voice IDs outside SupportedVoices.
	ErrUnsupportedVoice = errors.New("tts: unsupported voice")

	// ErrEmptyText is returned when there is nothing to speak.
	ErrEmptyText = errors.New("tts: text required")

	// ErrProviderUnavailable is returned when no provider is configured.
	ErrProviderUnavailable = errors.New("tts: provider unavailable")
)

// APIError is a non-2xx answer from the synthesis API.
type APIError struct {
	StatusCode int
	Message    string
	Code       string // ElevenLabs detail status, if any
	Provider   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tts [%s]: API error %d (%s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("tts [%s]: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited reports a 429, which ElevenLabs also uses for exhausted
// character quota.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsUnauthorized reports a rejected or missing API key.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsNotFound reports an unknown voice or model on the provider side.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// Class names the failure for logs.
func (e *APIError) Class() string {
	switch {
	case e.IsRateLimited():
		return ClassRateLimited
	case e.IsUnauthorized():
		return ClassUnauthorized
	case e.IsNotFound():
		return ClassNotFound
	case e.IsServerError():
		return ClassServer
	default:
		return ClassRejected
	}
}

// Failure classes returned by ErrorClass.
const (
	ClassRateLimited  = "rate_limited"
	ClassUnauthorized = "unauthorized"
	ClassNotFound     = "not_found"
	ClassServer       = "server"
	ClassRejected     = "rejected"
	ClassTransport    = "transport"
	ClassRequest      = "request"
)

// ErrorClass classifies a synthesis failure. API answers are classed by
// status, other provider failures are transport errors, and anything else
// was caught before a request was sent.
func ErrorClass(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class()
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return ClassTransport
	}
	return ClassRequest
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
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}
