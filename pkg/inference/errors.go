package inference

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrNoAPIKey is returned when API key is required but missing.
	ErrNoAPIKey = errors.New("inference: API key required")

	// ErrNoModel is returned when model is required but missing.
	ErrNoModel = errors.New("inference: model required")

	// ErrProviderUnavailable is returned when no provider is configured.
	ErrProviderUnavailable = errors.New("inference: provider unavailable")

	// ErrEmptyResponse is returned when the API answers without choices.
	ErrEmptyResponse = errors.New("inference: empty response")

	// ErrNoImages is returned when a transcription request has no images.
	ErrNoImages = errors.New("inference: no images")

	// ErrTooManyImages is returned when more than MaxImages are supplied.
	ErrTooManyImages = errors.New("inference: too many images")

	// ErrUnsupportedImageType is returned for MIME types outside AllowedImageTypes.
	ErrUnsupportedImageType = errors.New("inference: unsupported image type")

	// ErrImageTooLarge is returned for images above MaxImageBytes.
	ErrImageTooLarge = errors.New("inference: image too large")

	// ErrEmptyImage is returned for zero-byte images.
	ErrEmptyImage = errors.New("inference: empty image")

	// ErrEmptyText is returned when there is nothing to translate.
	ErrEmptyText = errors.New("inference: empty text")
)

// APIError represents an error response from an inference API.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the error message from the API.
	Message string

	// Code is the error code (if provided).
	Code string

	// Provider identifies which provider returned the error.
	Provider string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("inference [%s]: API error %d (%s): %s",
			e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("inference [%s]: API error %d: %s",
		e.Provider, e.StatusCode, e.Message)
}

// IsRateLimited returns true if this is a rate limit error (HTTP 429).
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}

// IsUnauthorized returns true if this is an authentication error (HTTP 401).
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// ErrorClass names a failure for logs: "rate_limited", "unauthorized",
// "server" or "rejected" for API answers, "transport" for other provider
// failures, and "request" for anything caught before sending.
func ErrorClass(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsRateLimited():
			return "rate_limited"
		case apiErr.IsUnauthorized():
			return "unauthorized"
		case apiErr.IsServerError():
			return "server"
		default:
			return "rejected"
		}
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return "transport"
	}
	return "request"
}

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
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

// IsUpstream reports whether err came from the completion provider rather
// than from request validation.
func IsUpstream(err error) bool {
	var apiErr *APIError
	var provErr *ProviderError
	return errors.As(err, &apiErr) || errors.As(err, &provErr)
}

// IsValidation reports whether err was caused by an invalid request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoImages) ||
		errors.Is(err, ErrTooManyImages) ||
		errors.Is(err, ErrUnsupportedImageType) ||
		errors.Is(err, ErrImageTooLarge) ||
		errors.Is(err, ErrEmptyImage) ||
		errors.Is(err, ErrEmptyText)
}
