package sharepoint

import (
	"errors"
	"fmt"
)

// DigestError reports a failed form digest negotiation. Status is zero when
// the contextinfo endpoint was unreachable.
type DigestError struct {
	Status int
	Err    error
}

func (e *DigestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("digest negotiation failed with status %d", e.Status)
	}
	return fmt.Sprintf("digest negotiation failed: %v", e.Err)
}

func (e *DigestError) Unwrap() error { return e.Err }

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("network error: %v", e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response. Body carries a truncated copy of
// the response for diagnostics.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// EnvelopeError reports a success response whose body could not be parsed as
// the expected OData envelope.
type EnvelopeError struct {
	Err error
}

func (e *EnvelopeError) Error() string { return fmt.Sprintf("malformed response envelope: %v", e.Err) }
func (e *EnvelopeError) Unwrap() error { return e.Err }

// retryable reports whether the gateway retry loop should take another
// attempt at err. The backing store has been observed to fail transiently on
// any status class, so by default client errors are retried too; set
// retryClientErrors false to stop retrying 4xx.
func retryable(err error, retryClientErrors bool) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Status >= 400 && statusErr.Status < 500 {
			return retryClientErrors
		}
		return true
	}
	var digestErr *DigestError
	if errors.As(err, &digestErr) {
		if digestErr.Status >= 400 && digestErr.Status < 500 {
			return retryClientErrors
		}
		return true
	}
	return true
}
