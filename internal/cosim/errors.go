package cosim

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrConnection means the session never started: listen, accept or
	// dial failed, or the wait was cancelled.
	ErrConnection = eris.New("cosim: connection failed")

	// ErrCommunication means a started session broke mid-exchange.
	ErrCommunication = eris.New("cosim: communication failed")

	// ErrMalformedFrame is a short or non-finite inbound frame.
	ErrMalformedFrame = eris.New("cosim: malformed frame")

	// ErrClosed is returned by every call after the session has closed.
	ErrClosed = eris.New("cosim: session closed")

	// ErrWidthMismatch means the caller's slices do not match the widths the
	// session was opened with.
	ErrWidthMismatch = eris.New("cosim: signal width mismatch")
)

// Error is a channel failure of a given Kind.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the Kind, and ErrCommunication for the kinds that are
// communication failures.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return target == ErrCommunication && (e.Kind == ErrMalformedFrame || e.Kind == ErrClosed)
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
