package rest

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks a rejected bearer token. It is fatal for the session:
// the user has to sign in again.
var ErrUnauthorized = errors.New("unauthorized")

// RequestError is a failed REST call. Transport failures carry no status
// code. Request errors are surfaced to the caller and never retried
// automatically; every one except an authorization failure leaves the
// session usable and the same call may be issued again.
type RequestError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": " + e.Message
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may issue the request again. Only an
// authorization failure is not retryable.
func (e *RequestError) Retryable() bool {
	return !errors.Is(e, ErrUnauthorized)
}

// IsFatal reports whether err ends the session rather than one request.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
