package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// RejectedError is a terminal, non-retryable response for a single lookup.
// Callers treat it as "no data" rather than a failure.
type RejectedError struct {
	StatusCode int
	URL        string
}

func (e *RejectedError) Error() string {
	switch e.StatusCode {
	case http.StatusNotFound:
		return fmt.Sprintf("not found (HTTP %d): %s", e.StatusCode, e.URL)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("not authorized (HTTP %d): %s", e.StatusCode, e.URL)
	default:
		return fmt.Sprintf("rejected (HTTP %d): %s", e.StatusCode, e.URL)
	}
}

// Unauthorized reports whether the rejection came from an expired or invalid token.
func (e *RejectedError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NewRejectedError creates a RejectedError for the given status and URL
func NewRejectedError(statusCode int, url string) *RejectedError {
	return &RejectedError{StatusCode: statusCode, URL: url}
}

// IsRejectedError checks if err is a RejectedError
func IsRejectedError(err error) bool {
	var rejErr *RejectedError
	return stdErrors.As(err, &rejErr)
}
