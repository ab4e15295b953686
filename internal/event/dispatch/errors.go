package dispatch

import (
	"errors"
	"fmt"
)

// ErrHandlerPanic matches every *PanicError via errors.Is.
var ErrHandlerPanic = errors.New("handler panicked")

// PanicError carries a recovered panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
