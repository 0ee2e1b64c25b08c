package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedScheme is returned for URLs whose scheme has no fetcher.
	// The full message lists the supported schemes.
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrProbeRequired     = errors.New("probe must be called before fetch")
	ErrNotResolvable     = errors.New("index does not resolve to a catalog item")
	ErrExecutorClosed    = errors.New("executor is closed")
)

// FetchError is a structured error from a fetcher.
// Use errors.As to extract it.
type FetchError struct {
	// Protocol is the protocol that produced the error, e.g. "http" or "ftp".
	Protocol string
	// Op is the failing operation, e.g. "probe" or "fetch:copy".
	Op    string
	Cause error

	transient bool
}

// Error formats as "protocol op: cause".
func (e *FetchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %s", e.Protocol, e.Op, e.Cause.Error())
	}
	return fmt.Sprintf("%s %s", e.Protocol, e.Op)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// IsTransient reports whether the failure may go away on retry.
func (e *FetchError) IsTransient() bool {
	return e.transient
}

func NewTransientError(protocol, op string, cause error) *FetchError {
	return &FetchError{Protocol: protocol, Op: op, Cause: cause, transient: true}
}

func NewPermanentError(protocol, op string, cause error) *FetchError {
	return &FetchError{Protocol: protocol, Op: op, Cause: cause}
}
