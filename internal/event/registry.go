package event

import (
	"slices"
	"sort"

	"github.com/dshills/fanout/internal/event/topic"
)

// kind identifies the collection a registration lives in.
type kind uint8

const (
	kindRegular kind = iota
	kindOnce
	kindWildcard
	kindWildcardOnce
	kindCatchAll
)

// features summarizes which optional collections are non-empty so emission
// can skip whole phases.
type features struct {
	wildcards bool
	pipes     bool
	catchAll  bool
	filters   bool
}

// refreshFeaturesLocked recomputes the summary. Every mutation calls it.
func (e *Emitter) refreshFeaturesLocked() {
	e.features = features{
		wildcards: len(e.wildcards) > 0,
		pipes:     len(e.pipes) > 0,
		catchAll:  len(e.catchAll) > 0,
		filters:   e.filterCount > 0,
	}
}

// add registers l under key. Pattern keys become wildcard entries.
func (e *Emitter) add(key string, l *Listener, once, prepend bool, opts []ListenerOption) *Emitter {
	if l == nil {
		return e
	}
	cfg := newListenerConfig(opts)
	if prepend {
		cfg.priority++
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	x := e.newEntryLocked(key, l, cfg)

	var count int
	switch {
	case topic.IsPattern(key):
		x.kind = kindWildcard
		if once {
			x.kind = kindWildcardOnce
		}
		e.insertWildcardLocked(x)
		count = len(e.wildcards[key])
	case once:
		x.kind = kindOnce
		e.once[key] = insertByPriority(e.once[key], x)
		count = len(e.regular[key]) + len(e.once[key])
	default:
		x.kind = kindRegular
		e.regular[key] = insertByPriority(e.regular[key], x)
		count = len(e.regular[key]) + len(e.once[key])
	}

	if x.meta != nil && cfg.ttl > 0 {
		x.meta.expiry = e.cfg.clock.AfterFunc(cfg.ttl, func() {
			e.expire(x)
		})
	}

	e.refreshFeaturesLocked()
	e.checkLeakLocked(key, count)
	return e
}

// insertByPriority places x before the first entry with a strictly lower
// priority. Appending is the common case and skips the scan.
func insertByPriority(list []*entry, x *entry) []*entry {
	p := x.priority()
	if n := len(list); n == 0 || list[n-1].priority() >= p {
		return append(list, x)
	}
	for i, y := range list {
		if y.priority() < p {
			return slices.Insert(list, i, x)
		}
	}
	return append(list, x)
}

func (e *Emitter) insertWildcardLocked(x *entry) {
	if _, ok := e.wildcards[x.key]; !ok {
		e.patternOrder = append(e.patternOrder, x.key)
	}
	e.seq++
	x.seq = e.seq
	x.pattern = topic.Compile(x.key)
	e.wildcards[x.key] = append(e.wildcards[x.key], x)
}

// checkLeakLocked warns when a key's listener count passes the cap, only at
// powers of two.
func (e *Emitter) checkLeakLocked(key string, count int) {
	max := e.maxListeners
	if max <= 0 || count <= max || count&(count-1) != 0 {
		return
	}
	e.log.Warn("possible listener leak",
		"event", key,
		"count", count,
		"max", max,
	)
}

// expire is the TTL callback for one registration.
func (e *Emitter) expire(x *entry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if x.removed {
		return
	}
	x.meta.expiry = nil
	e.removeEntryLocked(x)
}

// removeEntryLocked takes x out of its collection and releases it. It
// reports false when x was already gone. Caller must hold e.mu.
func (e *Emitter) removeEntryLocked(x *entry) bool {
	if x.removed {
		return false
	}

	switch x.kind {
	case kindRegular:
		if e.regular[x.key] = removeFirst(e.regular[x.key], x); len(e.regular[x.key]) == 0 {
			delete(e.regular, x.key)
		}
	case kindOnce:
		if e.once[x.key] = removeFirst(e.once[x.key], x); len(e.once[x.key]) == 0 {
			delete(e.once, x.key)
		}
	case kindWildcard, kindWildcardOnce:
		if entries := removeFirst(e.wildcards[x.key], x); len(entries) == 0 {
			e.dropPatternLocked(x.key)
		} else {
			e.wildcards[x.key] = entries
		}
	case kindCatchAll:
		e.catchAll = removeFirst(e.catchAll, x)
	}

	e.releaseLocked(x)
	e.refreshFeaturesLocked()
	return true
}

// removeMatchingLocked removes the first registration under key standing
// for l: regular listeners first, then once listeners. For pattern keys it
// searches the pattern's wildcard entries.
func (e *Emitter) removeMatchingLocked(key string, l *Listener) {
	match := func(x *entry) bool { return x.standsFor(l) }

	if topic.IsPattern(key) {
		if i := slices.IndexFunc(e.wildcards[key], match); i >= 0 {
			e.removeEntryLocked(e.wildcards[key][i])
		}
		return
	}
	if i := slices.IndexFunc(e.regular[key], match); i >= 0 {
		e.removeEntryLocked(e.regular[key][i])
		return
	}
	if i := slices.IndexFunc(e.once[key], match); i >= 0 {
		e.removeEntryLocked(e.once[key][i])
	}
}

func (e *Emitter) dropPatternLocked(pattern string) {
	delete(e.wildcards, pattern)
	if i := slices.Index(e.patternOrder, pattern); i >= 0 {
		e.patternOrder = slices.Delete(e.patternOrder, i, i+1)
	}
}

// removeAllLocked clears one key, or everything but pipes when all is set.
func (e *Emitter) removeAllLocked(key string, all bool) {
	switch {
	case all:
		for _, x := range e.entriesLocked() {
			e.releaseLocked(x)
		}
		clear(e.regular)
		clear(e.once)
		clear(e.wildcards)
		e.patternOrder = nil
		e.catchAll = nil
	case topic.IsPattern(key):
		for _, x := range e.wildcards[key] {
			e.releaseLocked(x)
		}
		e.dropPatternLocked(key)
	default:
		for _, x := range e.regular[key] {
			e.releaseLocked(x)
		}
		for _, x := range e.once[key] {
			e.releaseLocked(x)
		}
		delete(e.regular, key)
		delete(e.once, key)
	}
	e.refreshFeaturesLocked()
}

// entriesLocked returns every registration of every kind.
func (e *Emitter) entriesLocked() []*entry {
	var out []*entry
	for _, list := range e.regular {
		out = append(out, list...)
	}
	for _, list := range e.once {
		out = append(out, list...)
	}
	for _, pattern := range e.patternOrder {
		out = append(out, e.wildcards[pattern]...)
	}
	return append(out, e.catchAll...)
}

// matchingWildcardsLocked returns the wildcard entries matching name in
// emission order: priority descending, then registration order.
func (e *Emitter) matchingWildcardsLocked(name string) []*entry {
	var out []*entry
	for _, pattern := range e.patternOrder {
		entries := e.wildcards[pattern]
		if len(entries) == 0 || !entries[0].pattern.Match(name) {
			continue
		}
		out = append(out, entries...)
	}
	if len(out) > 1 {
		sort.SliceStable(out, func(i, j int) bool {
			pi, pj := out[i].priority(), out[j].priority()
			if pi != pj {
				return pi > pj
			}
			return out[i].seq < out[j].seq
		})
	}
	return out
}

// resolveLocked returns the registrations name resolves to, in resolution
// order. A pattern name returns that pattern's own entries.
func (e *Emitter) resolveLocked(name string) []*entry {
	if topic.IsPattern(name) {
		return slices.Clone(e.wildcards[name])
	}

	var out []*entry
	out = append(out, e.regular[name]...)
	out = append(out, e.once[name]...)
	if e.features.wildcards {
		out = append(out, e.matchingWildcardsLocked(name)...)
	}
	return out
}

// countLocked counts registrations for one name.
func (e *Emitter) countLocked(name string) int {
	if topic.IsPattern(name) {
		return len(e.wildcards[name])
	}
	n := len(e.regular[name]) + len(e.once[name])
	if e.features.wildcards {
		for _, entries := range e.wildcards {
			if len(entries) > 0 && entries[0].pattern.Match(name) {
				n += len(entries)
			}
		}
	}
	return n
}

// countAllLocked counts every registration, catch-all included.
func (e *Emitter) countAllLocked() int {
	n := len(e.catchAll)
	for _, list := range e.regular {
		n += len(list)
	}
	for _, list := range e.once {
		n += len(list)
	}
	for _, entries := range e.wildcards {
		n += len(entries)
	}
	return n
}

func removeFirst(list []*entry, x *entry) []*entry {
	if i := slices.Index(list, x); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}
