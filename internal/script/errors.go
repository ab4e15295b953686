package script

import (
	"errors"
	"fmt"
)

var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrFunctionNotFound is returned when the named global function does not exist.
	ErrFunctionNotFound = errors.New("lua function not found")
)

// Error reports a failed Lua listener call.
type Error struct {
	Script   string
	Function string
	Event    string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("script %s: %s(%q): %v", e.Script, e.Function, e.Event, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
