package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates Run was called while a feed is being processed.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrShutdown indicates the application has been shut down.
	ErrShutdown = errors.New("application shut down")

	// ErrInvalidCommand indicates a feed line is not a known command.
	ErrInvalidCommand = errors.New("invalid command")
)

// InitError reports a component that failed to start.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initializing %s: %v", e.Component, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// ListenerConfigError reports a configured listener that could not be built.
type ListenerConfigError struct {
	Index int
	Event string
	Err   error
}

func (e *ListenerConfigError) Error() string {
	return fmt.Sprintf("listeners[%d] (%q): %v", e.Index, e.Event, e.Err)
}

func (e *ListenerConfigError) Unwrap() error {
	return e.Err
}

// LineError reports a feed line that could not be processed.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
