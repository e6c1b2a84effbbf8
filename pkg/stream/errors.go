package stream

import (
	"errors"
	"fmt"

	"github.com/papercomputeco/livewire/pkg/envelope"
)

var (
	// ErrTimeout is returned when a session's deadline elapses before it
	// completes. It is distinct from transport failures so callers can tell
	// "server too slow" apart from "server unreachable".
	ErrTimeout = errors.New("stream timed out")

	// ErrAborted is returned when the caller cancels a session.
	ErrAborted = errors.New("stream aborted")

	// ErrNoFrames is returned in Sequence mode when the stream completed
	// without a single content frame.
	ErrNoFrames = errors.New("no streaming data received")

	// ErrTruncated is returned in Sequence mode when Request.RequireTerminal
	// is set and the response ended without the terminal frame.
	ErrTruncated = errors.New("stream ended without terminal frame")

	// errResolved is the cancellation cause used to release the transport
	// once a session has already resolved.
	errResolved = errors.New("stream resolved")
)

// TransportError wraps a network-level failure: connection refused, DNS
// failure, a broken body read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func newStatusError(code int, body []byte) *StatusError {
	return &StatusError{
		Code:    code,
		Message: envelope.ErrorMessage(body),
	}
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Code)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Code, e.Message)
}
