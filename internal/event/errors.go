package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for the emitter.
var (
	// ErrTimeout matches every *TimeoutError via errors.Is.
	ErrTimeout = errors.New("timed out waiting for event")

	// ErrNoEvents is returned by Race when called without event names.
	ErrNoEvents = errors.New("no events to race")
)

// ListenerError wraps an error returned by a listener during Emit.
type ListenerError struct {
	// Event is the emitted event name.
	Event string

	// ListenerID is the ID of the listener that failed.
	ListenerID string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return "listener " + e.ListenerID + " failed on event " + e.Event + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned by WaitFor and Race when the timeout elapses.
type TimeoutError struct {
	// Events are the awaited event names.
	Events []string

	// Timeout is the configured duration.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if len(e.Events) == 1 {
		return fmt.Sprintf("timed out after %s waiting for event %q", e.Timeout, e.Events[0])
	}
	return fmt.Sprintf("timed out after %s waiting for any of events [%s]", e.Timeout, strings.Join(e.Events, ", "))
}

// Is allows errors.Is to match TimeoutError with ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}
