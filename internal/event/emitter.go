package event

import (
	"log/slog"
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dshills/fanout/internal/event/clock"
	"github.com/dshills/fanout/internal/event/dispatch"
)

// Emitter is an in-process event dispatcher.
//
// All methods are safe for concurrent use. Listeners always run outside the
// emitter's lock, so they may register, remove and emit freely.
type Emitter struct {
	mu sync.Mutex

	regular      map[string][]*entry
	once         map[string][]*entry
	wildcards    map[string][]*entry
	patternOrder []string
	catchAll     []*entry
	pipes        []*Emitter

	// filterCount is the number of registrations carrying a filter.
	filterCount int
	features    features
	seq         uint64

	maxListeners int
	sweeper      clock.Timer

	// current is the emission most recently started, for StopPropagation.
	current atomic.Pointer[emission]

	cfg      emitterConfig
	log      *slog.Logger
	executor *dispatch.Executor
}

// New creates an emitter.
func New(opts ...Option) *Emitter {
	cfg := defaultEmitterConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	e := &Emitter{
		regular:      make(map[string][]*entry),
		once:         make(map[string][]*entry),
		wildcards:    make(map[string][]*entry),
		maxListeners: cfg.maxListeners,
		cfg:          cfg,
		log:          cfg.resolveLogger(),
	}
	e.executor = dispatch.NewExecutor(
		dispatch.WithExecutorPanicHandler(func(ev any, v any, stack []byte) {
			e.log.Debug("listener panic recovered", "value", v, "stack", string(stack))
		}),
	)

	if cfg.autoCleanup {
		e.mu.Lock()
		e.scheduleSweepLocked()
		e.mu.Unlock()
	}
	return e
}

// On registers l for key. A key containing * or ? is a wildcard pattern.
func (e *Emitter) On(key string, l *Listener, opts ...ListenerOption) *Emitter {
	return e.add(key, l, false, false, opts)
}

// Once registers l for a single delivery of key.
func (e *Emitter) Once(key string, l *Listener, opts ...ListenerOption) *Emitter {
	return e.add(key, l, true, false, opts)
}

// Prepend registers l ahead of listeners of the same priority.
func (e *Emitter) Prepend(key string, l *Listener, opts ...ListenerOption) *Emitter {
	return e.add(key, l, false, true, opts)
}

// PrependOnce is Once with Prepend's placement.
func (e *Emitter) PrependOnce(key string, l *Listener, opts ...ListenerOption) *Emitter {
	return e.add(key, l, true, true, opts)
}

// OnAny registers l for every event. It receives the event name as its
// first argument.
func (e *Emitter) OnAny(l *Listener) *Emitter {
	if l == nil {
		return e
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	x := e.newEntryLocked("", l, listenerConfig{})
	x.kind = kindCatchAll
	e.catchAll = append(e.catchAll, x)
	e.refreshFeaturesLocked()
	return e
}

// OffAny removes the first catch-all registration of l.
func (e *Emitter) OffAny(l *Listener) *Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := slices.IndexFunc(e.catchAll, func(x *entry) bool { return x.listener == l })
	if i >= 0 {
		e.removeEntryLocked(e.catchAll[i])
	}
	return e
}

// Off removes the first registration of l under key. Removing a listener
// that is not registered does nothing. A listener registered WithTimes is
// found through its original *Listener.
func (e *Emitter) Off(key string, l *Listener) *Emitter {
	if l == nil {
		return e
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.removeMatchingLocked(key, l)
	return e
}

// RemoveAll removes every listener registered under the given keys, or,
// with no keys, every listener of every kind. Pipes are kept.
func (e *Emitter) RemoveAll(keys ...string) *Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(keys) == 0 {
		e.removeAllLocked("", true)
		return e
	}
	for _, key := range keys {
		e.removeAllLocked(key, false)
	}
	return e
}

// Pipe forwards every emission to targets. Targets are not owned; a target
// may be piped from several emitters. Piping in a cycle recurses without
// bound.
func (e *Emitter) Pipe(targets ...*Emitter) *Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, t := range targets {
		if t != nil {
			e.pipes = append(e.pipes, t)
		}
	}
	e.refreshFeaturesLocked()
	return e
}

// Unpipe stops forwarding to targets, or to every target when none are given.
func (e *Emitter) Unpipe(targets ...*Emitter) *Emitter {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(targets) == 0 {
		e.pipes = nil
	} else {
		e.pipes = slices.DeleteFunc(e.pipes, func(p *Emitter) bool {
			return slices.Contains(targets, p)
		})
	}
	e.refreshFeaturesLocked()
	return e
}

// ListenerCount counts registrations for the given names: regular, once and
// every wildcard entry matching the name. With no names it counts every
// registration, catch-all included.
func (e *Emitter) ListenerCount(names ...string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(names) == 0 {
		return e.countAllLocked()
	}
	n := 0
	for _, name := range names {
		n += e.countLocked(name)
	}
	return n
}

// EventNames lists registered keys by kind. Each list is sorted.
type EventNames struct {
	Regular  []string
	Once     []string
	Wildcard []string
}

// EventNames returns the keys that currently have listeners.
func (e *Emitter) EventNames() EventNames {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := EventNames{
		Regular:  sortedKeys(e.regular),
		Once:     sortedKeys(e.once),
		Wildcard: slices.Clone(e.patternOrder),
	}
	sort.Strings(names.Wildcard)
	return names
}

// Listeners returns the registrations name resolves to, in delivery order.
// Listeners registered WithTimes appear as their wrapper.
func (e *Emitter) Listeners(name string) []*Listener {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.resolveLocked(name)
	out := make([]*Listener, len(entries))
	for i, x := range entries {
		out[i] = x.listener
	}
	return out
}

// RawListeners is Listeners with every wrapper replaced by the
// *Listener originally registered.
func (e *Emitter) RawListeners(name string) []*Listener {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := e.resolveLocked(name)
	out := make([]*Listener, len(entries))
	for i, x := range entries {
		out[i] = x.registered()
	}
	return out
}

// SetMaxListeners sets the leak-warning threshold. Zero disables it.
func (e *Emitter) SetMaxListeners(n int) *Emitter {
	if n < 0 {
		n = 0
	}
	e.mu.Lock()
	e.maxListeners = n
	e.mu.Unlock()
	return e
}

// MaxListeners returns the leak-warning threshold.
func (e *Emitter) MaxListeners() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxListeners
}

// StopPropagation halts the emission most recently started on e. Inside a
// listener prefer Event.StopPropagation, which always targets its own
// emission.
func (e *Emitter) StopPropagation() {
	if em := e.current.Load(); em != nil {
		em.stop()
	}
}

// Destroy removes every listener and pipe and stops the idle sweeper.
// The emitter stays usable; the sweeper is not restarted.
func (e *Emitter) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sweeper != nil {
		e.sweeper.Stop()
		e.sweeper = nil
	}
	e.removeAllLocked("", true)
	e.pipes = nil
	e.refreshFeaturesLocked()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
