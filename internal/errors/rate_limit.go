package errors

import (
	stdErrors "errors"
	"fmt"
	"time"
)

// RateLimitError represents a rate limit response from a catalog API
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// NewRateLimitError creates a new RateLimitError with the given message
func NewRateLimitError(message string) *RateLimitError {
	return &RateLimitError{Message: message}
}

// NewRateLimitErrorWithRetry creates a RateLimitError carrying the server's retry hint
func NewRateLimitErrorWithRetry(message string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Message: message, RetryAfter: retryAfter}
}

// IsRateLimitError checks if err is a RateLimitError
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return stdErrors.As(err, &rlErr)
}
