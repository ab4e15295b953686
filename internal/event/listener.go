package event

import (
	"context"

	"github.com/google/uuid"
)

// HandlerFunc is the callback run for a delivered event. A non-nil error
// from a synchronous Emit aborts the remaining delivery for that call.
type HandlerFunc func(ev *Event) error

// Listener is a registered callback. Registration and removal are keyed by
// the *Listener pointer, so keep the value returned by NewListener to remove
// it later. The same Listener may be registered several times and fires once
// per registration.
type Listener struct {
	id uuid.UUID
	fn HandlerFunc
}

// NewListener wraps fn in a Listener handle.
func NewListener(fn HandlerFunc) *Listener {
	return &Listener{id: uuid.New(), fn: fn}
}

// ID returns the listener's unique identifier, used in logs.
func (l *Listener) ID() string {
	return l.id.String()
}

// wrap returns a forwarding wrapper around l for limited invocation.
func (l *Listener) wrap() *Listener {
	return &Listener{id: uuid.New(), fn: l.fn}
}

func (l *Listener) call(ev *Event) error {
	if l.fn == nil {
		return nil
	}
	return l.fn(ev)
}

// Event is what a listener receives for one delivery.
type Event struct {
	// Name is the emitted event name, never the pattern that matched it.
	Name string

	// Args are the emitted arguments. Catch-all listeners receive the event
	// name as Args[0], followed by the emitted arguments.
	Args []any

	em *emission
}

// Arg returns the i-th argument, or nil if there are fewer arguments.
func (ev *Event) Arg(i int) any {
	if i < 0 || i >= len(ev.Args) {
		return nil
	}
	return ev.Args[i]
}

// Context returns the context of the emission. Synchronous Emit uses
// context.Background.
func (ev *Event) Context() context.Context {
	if ev.em == nil || ev.em.ctx == nil {
		return context.Background()
	}
	return ev.em.ctx
}

// StopPropagation prevents every listener after the current one from
// receiving this emission. It has no effect on EmitAsync.
func (ev *Event) StopPropagation() {
	if ev.em != nil {
		ev.em.stop()
	}
}

// Go attaches asynchronous work to the delivery. EmitAsync waits for every
// attached task before resolving; Emit starts the task and returns without
// waiting. Task failures are logged, never returned.
func (ev *Event) Go(task func(ctx context.Context) error) {
	if ev.em == nil || task == nil {
		return
	}
	ev.em.spawn(ev.Name, task)
}
