package event

import (
	"time"

	"github.com/dshills/fanout/internal/event/clock"
	"github.com/dshills/fanout/internal/event/topic"
)

// entry is one registration. The same *Listener may back several entries,
// each with its own options; removing one never touches the others.
type entry struct {
	listener *Listener

	// original is the *Listener passed to On when listener is its
	// WithTimes wrapper.
	original *Listener

	key  string
	kind kind

	// pattern and seq are set for wildcard entries.
	pattern *topic.Pattern
	seq     uint64

	// meta is nil for registrations with default options.
	meta *metadata

	// removed is set when the entry leaves its collection, so in-flight
	// deliveries that captured it skip it.
	removed bool
}

// metadata holds a registration's non-default options.
type metadata struct {
	priority int

	// remaining is the invocation budget; -1 means unlimited.
	remaining int

	expiry     clock.Timer
	lastAccess time.Time
	filter     Filter
}

func (x *entry) priority() int {
	if x.meta != nil {
		return x.meta.priority
	}
	return 0
}

// registered returns the *Listener the caller registered.
func (x *entry) registered() *Listener {
	if x.original != nil {
		return x.original
	}
	return x.listener
}

// standsFor reports whether x was registered with l, directly or through
// l's limited wrapper.
func (x *entry) standsFor(l *Listener) bool {
	return x.listener == l || x.original == l
}

// newEntryLocked builds the entry for one registration. Metadata is
// allocated only when cfg leaves the defaults or auto cleanup needs the
// access time. Caller must hold e.mu.
func (e *Emitter) newEntryLocked(key string, l *Listener, cfg listenerConfig) *entry {
	x := &entry{listener: l, key: key}
	if cfg.times > 0 {
		x.listener, x.original = l.wrap(), l
	}
	if !cfg.needsMetadata() && !e.cfg.autoCleanup {
		return x
	}

	x.meta = &metadata{
		priority:   cfg.priority,
		remaining:  -1,
		lastAccess: e.cfg.clock.Now(),
		filter:     cfg.filter,
	}
	if cfg.times > 0 {
		x.meta.remaining = cfg.times
	}
	if cfg.filter != nil {
		e.filterCount++
	}
	return x
}

// releaseLocked marks x removed and drops its metadata, cancelling the
// expiry timer. Caller must hold e.mu.
func (e *Emitter) releaseLocked(x *entry) {
	if x.removed {
		return
	}
	x.removed = true

	m := x.meta
	if m == nil {
		return
	}
	if m.expiry != nil {
		m.expiry.Stop()
		m.expiry = nil
	}
	if m.filter != nil {
		e.filterCount--
	}
}
