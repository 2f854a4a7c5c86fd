package generation

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the generation package
var (
	// ErrServiceUnavailable is returned when the circuit breaker rejects a
	// call without attempting the provider. Not retried by the client; the
	// caller may requeue the item later.
	ErrServiceUnavailable = errors.New("generation service unavailable")

	// ErrTransientFailure is returned when timeouts, 5xx responses, or 429s
	// persist through every retry attempt.
	ErrTransientFailure = errors.New("transient generation failure")

	// ErrPermanentFailure is returned for non-retryable provider errors:
	// 4xx responses other than 429, or responses that cannot be parsed.
	ErrPermanentFailure = errors.New("permanent generation failure")

	// ErrInvalidResponse is returned when the provider response cannot be
	// parsed into the expected stage payload. Always permanent.
	ErrInvalidResponse = errors.New("invalid response from language model")
)

// Kind labels a terminal generation failure for per-item batch reporting.
type Kind string

// Failure kinds surfaced in batch results.
const (
	KindNone               Kind = ""
	KindServiceUnavailable Kind = "service_unavailable"
	KindTransientFailure   Kind = "transient_failure"
	KindPermanentFailure   Kind = "permanent_failure"
	KindCancelled          Kind = "cancelled"
)

// KindOf classifies an error returned by Client.Invoke.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, ErrTransientFailure):
		return KindTransientFailure
	case errors.Is(err, ErrPermanentFailure), errors.Is(err, ErrInvalidResponse):
		return KindPermanentFailure
	default:
		return KindCancelled
	}
}

// StatusError is returned by HTTP providers for non-2xx responses. The
// client uses the status code to decide retryability and honors RetryAfter,
// when the provider supplied it, over the computed backoff delay.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider returned status %d (retry after %s)", e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("provider returned status %d", e.StatusCode)
}

// Retryable reports whether the status code indicates a transient condition.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}
