package httpclient

import (
	"errors"
	"fmt"
	"time"
)

// RetryableError is returned when retries are exhausted. Callers can
// inspect RetryAfter to decide whether to degrade or surface the error.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("HTTP %d: %s (retry after %v)", e.StatusCode, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func (e *RetryableError) IsRetryable() bool {
	return true
}

// IsRateLimited reports whether err wraps a 429 response.
func IsRateLimited(err error) bool {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.StatusCode == 429
	}
	return false
}
