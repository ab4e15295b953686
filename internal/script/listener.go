package script

import (
	"github.com/dshills/fanout/internal/event"
)

// Listener returns a handler that calls the global Lua function fn with the
// event name followed by the emitted arguments. An empty fn means
// DefaultFunction.
//
// A Lua error fails the delivery with an *Error. Returning false stops
// propagation. Events queued with emit() are emitted after the call returns,
// in order; the first emit error fails the delivery.
func (s *State) Listener(fn string) event.HandlerFunc {
	if fn == "" {
		fn = DefaultFunction
	}
	return func(ev *event.Event) error {
		args := make([]any, 0, len(ev.Args)+1)
		args = append(args, ev.Name)
		args = append(args, ev.Args...)

		results, queued, err := s.call(fn, args)
		if err != nil {
			return &Error{Script: s.name, Function: fn, Event: ev.Name, Err: err}
		}

		if len(results) > 0 {
			if b, ok := results[0].(bool); ok && !b {
				ev.StopPropagation()
			}
		}

		for _, q := range queued {
			if _, err := s.target.Emit(q.name, q.args...); err != nil {
				return &Error{Script: s.name, Function: fn, Event: ev.Name, Err: err}
			}
		}
		return nil
	}
}
