package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error describes a failed provider call. Transient failures (timeouts,
// connection errors, rate limits, 5xx) are safe to retry; permanent ones
// (bad request, auth) are not.
type Error struct {
	Op        string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a provider error worth retrying.
func IsTransient(err error) bool {
	var provErr *Error
	return errors.As(err, &provErr) && provErr.Transient
}

// newTransportError classifies an error from the HTTP round trip itself.
// Everything that never produced a response is retryable except a canceled
// caller.
func newTransportError(op string, err error) *Error {
	if errors.Is(err, context.Canceled) {
		return &Error{Op: op, Transient: false, Err: err}
	}
	return &Error{Op: op, Transient: true, Err: err}
}

// newStatusError classifies an error response by status code. 429 and 5xx
// are transient, other 4xx are permanent.
func newStatusError(op string, status int, err error) *Error {
	transient := status == http.StatusTooManyRequests || status >= 500
	return &Error{Op: op, Transient: transient, Err: err}
}
