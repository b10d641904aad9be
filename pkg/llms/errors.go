package llms

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edumentor-ai/edumentor/pkg/httpclient"
)

// RateLimitError is returned when the provider refuses a request due to
// quota or rate limits. The orchestrator uses it to degrade gracefully.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s quota exhausted (retry after %v)", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s quota exhausted", e.Provider)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err represents a quota or rate-limit
// failure from any provider.
func IsRateLimited(err error) bool {
	var rle *RateLimitError
	return errors.As(err, &rle)
}

// RetryAfter extracts the retry-after hint from a rate-limit error,
// or zero when none is known.
func RetryAfter(err error) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter
	}
	return 0
}

// wrapTransportError converts exhausted-retry 429s from the HTTP layer
// into a RateLimitError and passes everything else through.
func wrapTransportError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var re *httpclient.RetryableError
	if errors.As(err, &re) && re.StatusCode == 429 {
		return &RateLimitError{
			Provider:   provider,
			RetryAfter: re.RetryAfter,
			Err:        err,
		}
	}

	return err
}

// isQuotaStatus matches provider error statuses that signal quota
// exhaustion in the response body rather than the HTTP status line.
func isQuotaStatus(status string) bool {
	return strings.EqualFold(status, "RESOURCE_EXHAUSTED")
}
