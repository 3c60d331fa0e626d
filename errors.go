package carpark

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors. Every failure the ledger or a store returns matches
// exactly one of these under errors.Is.
var (
	// ErrInvalidInput means a caller supplied a malformed request: an empty
	// license, an unparsable session id, a missing timestamp.
	ErrInvalidInput = errors.New("carpark: invalid input")

	// ErrNotFound means no session has the given id.
	ErrNotFound = errors.New("carpark: session not found")

	// ErrAlreadyClosed means the session has a departure already. The stored
	// departure is left as it was.
	ErrAlreadyClosed = errors.New("carpark: session already closed")

	// ErrInvalidDuration means a departure precedes its arrival, or a
	// negative duration was asked to be priced.
	ErrInvalidDuration = errors.New("carpark: invalid duration")

	// ErrInvalidConfiguration means the ledger was configured with values it
	// cannot price with, such as a non-positive hourly rate.
	ErrInvalidConfiguration = errors.New("carpark: invalid configuration")

	// ErrStoreUnavailable means the backing store could not be reached or did
	// not answer in time. No partial change is visible after it.
	ErrStoreUnavailable = errors.New("carpark: store unavailable")
)

// Kind names the class of a failure. It is what the HTTP transport reports
// in the "error" field of an error body.
type Kind string

// Failure kinds.
const (
	KindInvalidInput         Kind = "invalid_input"
	KindNotFound             Kind = "not_found"
	KindAlreadyClosed        Kind = "already_closed"
	KindInvalidDuration      Kind = "invalid_duration"
	KindInvalidConfiguration Kind = "invalid_configuration"
	KindStoreUnavailable     Kind = "store_unavailable"
	KindInternal             Kind = "internal"
)

// KindOf classifies err. Context deadline and cancellation count as store
// unavailability because they only reach callers from timed store calls.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadyClosed):
		return KindAlreadyClosed
	case errors.Is(err, ErrInvalidDuration):
		return KindInvalidDuration
	case errors.Is(err, ErrInvalidConfiguration):
		return KindInvalidConfiguration
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindStoreUnavailable
	default:
		return KindInternal
	}
}

// ValidationError reports which field of a request was rejected.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("carpark: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) hold.
func (e ValidationError) Unwrap() error { return ErrInvalidInput }

// Unavailable wraps a backend error so that it matches ErrStoreUnavailable
// while keeping the driver error reachable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError returns true if the failure was caused by the request rather
// than by the ledger or its store.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindInvalidInput, KindNotFound, KindAlreadyClosed, KindInvalidDuration:
		return true
	default:
		return false
	}
}

// IsRetryable returns true if the same request may succeed later. Nothing in
// the ledger retries on its own.
func IsRetryable(err error) bool {
	return KindOf(err) == KindStoreUnavailable
}
