// Package script runs Lua event listeners.
//
// A State holds one sandboxed gopher-lua interpreter loaded with a script
// file. State.Listener turns a global Lua function into an event.HandlerFunc:
//
//	function on_event(name, order_id, total)
//	  if total > 1000 then
//	    emit("order.flagged", order_id)
//	    return false -- stop propagation
//	  end
//	end
//
// Only the base, table, string and math libraries are available. print
// writes to the state's logger, and emit queues an event that is emitted
// after the Lua call returns.
package script

import (
	"fmt"
	"log/slog"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// DefaultFunction is the global function called when a listener names none.
const DefaultFunction = "on_event"

// Emitter is the subset of the event emitter that scripts can emit into.
type Emitter interface {
	Emit(name string, args ...any) (bool, error)
}

// State wraps a gopher-lua state.
//
// gopher-lua's LState is not goroutine-safe; every entry point takes mu, so
// concurrent emissions into the same script are serialized.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	name   string
	logger *slog.Logger
	target Emitter

	// queued holds emit() calls made during the current Lua call.
	queued []queuedEmit
	closed bool
}

type queuedEmit struct {
	name string
	args []any
}

// StateOption configures a State.
type StateOption func(*State)

// WithLogger sets the logger that receives Lua print output.
func WithLogger(l *slog.Logger) StateOption {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEmitter enables the Lua emit function, forwarding to e.
func WithEmitter(e Emitter) StateOption {
	return func(s *State) {
		s.target = e
	}
}

// WithName labels the state in logs and errors, usually with the script path.
func WithName(name string) StateOption {
	return func(s *State) {
		s.name = name
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{
		name:   "<script>",
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.L = lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibraries(s.L)
	installSandbox(s)

	return s
}

// Load reads and runs the Lua file at path, creating a state named after it.
func Load(path string, opts ...StateOption) (*State, error) {
	s := NewState(append([]StateOption{WithName(path)}, opts...)...)
	if err := s.DoFile(path); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Name returns the state's label.
func (s *State) Name() string {
	return s.name
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.doWithRecovery(func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return s.doWithRecovery(func() error {
		return s.L.DoString(code)
	})
}

func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// HasFunction reports whether fn is a global Lua function.
func (s *State) HasFunction(fn string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.L.GetGlobal(fn).Type() == lua.LTFunction
}

// Call calls a global Lua function with Go arguments and returns its results
// converted to Go values, along with any emit() calls it queued.
func (s *State) Call(fn string, args ...any) ([]any, error) {
	results, _, err := s.call(fn, args)
	return results, err
}

func (s *State) call(fn string, args []any) ([]any, []queuedEmit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, ErrStateClosed
	}

	fnVal := s.L.GetGlobal(fn)
	if fnVal == lua.LNil {
		return nil, nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, fn)
	}
	if fnVal.Type() != lua.LTFunction {
		return nil, nil, fmt.Errorf("%q is not a function (got %s)", fn, fnVal.Type())
	}

	s.queued = nil
	stackTop := s.L.GetTop()

	s.L.Push(fnVal)
	for _, arg := range args {
		s.L.Push(toLua(s.L, arg))
	}

	err := s.doWithRecovery(func() error {
		return s.L.PCall(len(args), lua.MultRet, nil)
	})
	queued := s.queued
	s.queued = nil
	if err != nil {
		s.L.SetTop(stackTop)
		return nil, nil, err
	}

	nRet := s.L.GetTop() - stackTop
	results := make([]any, 0, max(nRet, 0))
	for i := 1; i <= nRet; i++ {
		results = append(results, toGo(s.L.Get(stackTop+i)))
	}
	if nRet > 0 {
		s.L.Pop(nRet)
	}

	return results, queued, nil
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}
