package event

import (
	"slices"
	"sync"
	"time"

	"github.com/dshills/fanout/internal/event/clock"
	"github.com/dshills/fanout/internal/event/future"
)

// settleGuard lets exactly one of the listener and the timer settle a
// combinator.
type settleGuard struct {
	mu      sync.Mutex
	settled bool
	timer   clock.Timer
}

// claim marks the guard settled and returns the pending timer. It returns
// false if the guard was already settled.
func (g *settleGuard) claim() (clock.Timer, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.settled {
		return nil, false
	}
	g.settled = true
	t := g.timer
	g.timer = nil
	return t, true
}

// WaitFor resolves with the arguments of the next emission of name.
// A pattern name waits for any matching event. With a positive timeout the
// future is rejected with a *TimeoutError once it elapses; either way no
// listener from this call remains registered afterwards.
func (e *Emitter) WaitFor(name string, timeout time.Duration) *future.Future[[]any] {
	f := future.New[[]any]()
	g := &settleGuard{}

	l := NewListener(func(ev *Event) error {
		t, ok := g.claim()
		if !ok {
			return nil
		}
		if t != nil {
			t.Stop()
		}
		f.Resolve(slices.Clone(ev.Args))
		return nil
	})

	// Holding g.mu while registering keeps a fast listener from missing
	// the timer it has to stop.
	g.mu.Lock()
	defer g.mu.Unlock()

	e.Once(name, l)
	if timeout > 0 {
		g.timer = e.cfg.clock.AfterFunc(timeout, func() {
			if _, ok := g.claim(); !ok {
				return
			}
			e.Off(name, l)
			f.Reject(&TimeoutError{Events: []string{name}, Timeout: timeout})
		})
	}
	return f
}

// RaceResult is the outcome of Race.
type RaceResult struct {
	// Event is the name that fired first.
	Event string

	// Args are its arguments.
	Args []any
}

// Race resolves with whichever of names is emitted first, then detaches the
// listeners for the rest. With a positive timeout the future is rejected
// with a *TimeoutError naming every candidate once it elapses.
func (e *Emitter) Race(names []string, timeout time.Duration) *future.Future[RaceResult] {
	if len(names) == 0 {
		return future.Rejected[RaceResult](ErrNoEvents)
	}

	f := future.New[RaceResult]()
	g := &settleGuard{}
	listeners := make([]*Listener, len(names))

	detachAll := func() {
		for i, name := range names {
			e.Off(name, listeners[i])
		}
	}

	for i := range names {
		listeners[i] = NewListener(func(ev *Event) error {
			t, ok := g.claim()
			if !ok {
				return nil
			}
			if t != nil {
				t.Stop()
			}
			detachAll()
			f.Resolve(RaceResult{Event: ev.Name, Args: slices.Clone(ev.Args)})
			return nil
		})
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for i, name := range names {
		e.Once(name, listeners[i])
	}
	if timeout > 0 {
		g.timer = e.cfg.clock.AfterFunc(timeout, func() {
			if _, ok := g.claim(); !ok {
				return
			}
			detachAll()
			f.Reject(&TimeoutError{Events: slices.Clone(names), Timeout: timeout})
		})
	}
	return f
}
