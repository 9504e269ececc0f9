// Classifies fetch errors into the categories callers act on: transport
// problems are retryable, upstream 4xx responses are not, and cancellation
// is a distinct signal rather than a failure.

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TransportError wraps a network-level failure (unreachable host, timed-out
// request, unreadable body). Transport errors are retryable.
type TransportError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// UpstreamError is a semantic 4xx/5xx response from the API. A malformed
// response body is reported as an UpstreamError with StatusUnprocessable
// semantics since the payload cannot be trusted either way.
type UpstreamError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("upstream error (status %d, %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("upstream error (status %d): %s", e.Status, e.Message)
}

// IsCancellation reports whether err is the caller giving up, as opposed to
// a failure. Per-request deadline expiry is a transport timeout, not a
// cancellation, so only context.Canceled qualifies.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Retryable reports whether the error class is worth retrying: transport
// failures, rate limiting, and 5xx. Other upstream errors (auth, not-found,
// validation) will fail the same way again.
func Retryable(err error) bool {
	if IsCancellation(err) {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return true
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status == http.StatusTooManyRequests || ue.Status >= 500
	}
	return false
}

// RetryDecision is the outcome of the retry policy for one attempt.
type RetryDecision struct {
	Retry bool
	Delay time.Duration
}

// RetryPolicy decides whether attempt (1-based) should be retried and after
// what delay. Pure function: exponential backoff from base, capped at max.
func RetryPolicy(attempt, maxAttempts int, base, max time.Duration, err error) RetryDecision {
	if attempt >= maxAttempts || !Retryable(err) {
		return RetryDecision{}
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}
	return RetryDecision{Retry: true, Delay: delay}
}

// Humanize translates an error into text suitable for an end-user surface
// instead of a raw status code.
func Humanize(err error) string {
	if err == nil {
		return ""
	}
	if IsCancellation(err) {
		return "request cancelled"
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		switch ue.Status {
		case http.StatusUnauthorized:
			return "the API token is invalid or expired"
		case http.StatusForbidden:
			return "the token does not have access to this source"
		case http.StatusNotFound:
			return "the source was not found; it may have been deleted or unshared"
		case http.StatusBadRequest:
			return "the request was rejected: " + ue.Message
		case http.StatusTooManyRequests:
			return "rate limited by the API; try again shortly"
		}
		if ue.Status >= 500 {
			return "the service is having trouble; try again shortly"
		}
		return ue.Message
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "could not reach the service: " + te.Err.Error()
	}
	return err.Error()
}
