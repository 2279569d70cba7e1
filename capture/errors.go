package capture

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrCaptureFailure covers every capture-time failure: screenshot
	// denied, element vanished, geometry without area.
	ErrCaptureFailure = errors.New("capture: capture failed")

	// ErrDegenerateRegion is a capture failure caused by a selection with
	// no visible area.
	ErrDegenerateRegion = fmt.Errorf("%w: region has no visible area", ErrCaptureFailure)

	// ErrAborted means the pipeline was cancelled, timed out, or lost its
	// page while a capture was in flight. No partial result is produced.
	ErrAborted = errors.New("capture: aborted")

	// ErrSelectCanceled means the user dismissed the selection.
	ErrSelectCanceled = errors.New("capture: selection canceled")
)

// Error carries the operation and session a failure belongs to.
type Error struct {
	Op        string
	SessionID string
	Err       error
}

func (e *Error) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("capture: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("capture: %s [%s]: %v", e.Op, e.SessionID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// aborted wraps cause so that it matches ErrAborted and still exposes the
// context error underneath.
func aborted(cause error) error {
	if cause == nil {
		cause = context.Canceled
	}
	if errors.Is(cause, ErrAborted) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrAborted, cause)
}

// failed wraps cause so that it matches ErrCaptureFailure.
func failed(cause error) error {
	if errors.Is(cause, ErrCaptureFailure) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrCaptureFailure, cause)
}
