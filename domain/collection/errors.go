// Package collection provides the collection run domain: tasks, the search
// client contract, sinks and run reporting.
package collection

import (
	"errors"
	"fmt"
	"time"
)

// ErrAuth indicates the search backend rejected the credentials or session.
// It is fatal for the whole run.
var ErrAuth = errors.New("authentication rejected")

// RateLimitError indicates the backend throttled a request. The caller
// should wait at least RetryAfter before retrying.
type RateLimitError struct {
	retryAfter time.Duration
}

// NewRateLimitError creates a RateLimitError. A zero duration means the
// backend gave no Retry-After hint.
func NewRateLimitError(retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{retryAfter: retryAfter}
}

func (e *RateLimitError) Error() string {
	if e.retryAfter <= 0 {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited, retry after %s", e.retryAfter)
}

// RetryAfter returns the wait the backend asked for, or 0 if none was given.
func (e *RateLimitError) RetryAfter() time.Duration { return e.retryAfter }

// TransientError indicates a failure that is worth retrying with backoff:
// server errors, timeouts, connection resets.
type TransientError struct {
	op    string
	cause error
}

// NewTransientError wraps a retryable failure of the given operation.
func NewTransientError(op string, cause error) *TransientError {
	return &TransientError{op: op, cause: cause}
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.cause)
}

func (e *TransientError) Unwrap() error { return e.cause }

// AsRateLimit extracts a RateLimitError from an error chain.
func AsRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// IsTransient reports whether the error chain contains a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
