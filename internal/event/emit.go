package event

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/dshills/fanout/internal/event/dispatch"
	"github.com/dshills/fanout/internal/event/future"
)

// emission is the state of one Emit or EmitAsync call.
type emission struct {
	emitter *Emitter
	ctx     context.Context
	async   bool
	stopped atomic.Bool

	// group collects attached tasks; nil for synchronous emission.
	group *dispatch.Group
}

func (em *emission) stop() {
	em.stopped.Store(true)
}

// halted reports whether delivery must stop. Async emission ignores it.
func (em *emission) halted() bool {
	return !em.async && em.stopped.Load()
}

// spawn runs an attached task. Async emission waits for it through the
// group; synchronous emission lets it run detached.
func (em *emission) spawn(name string, task func(context.Context) error) {
	h := dispatch.HandlerFunc(func(ctx context.Context, _ any) error {
		return task(ctx)
	})
	if em.group != nil {
		em.group.Go(name, h)
		return
	}

	e := em.emitter
	go func() {
		if res := e.executor.Execute(em.ctx, name, h); !res.IsSuccess() {
			e.logTaskFailure(name, res)
		}
	}()
}

// plan is the resolved candidate set for one emission, captured under the
// lock. Registrations made during delivery do not join it.
type plan struct {
	regular  []*entry
	once     []*entry
	wildcard []*entry
	catchAll []*entry
	pipes    []*Emitter
	filters  bool
}

func (p *plan) empty() bool {
	return len(p.regular) == 0 && len(p.once) == 0 && len(p.wildcard) == 0 &&
		len(p.catchAll) == 0 && len(p.pipes) == 0
}

func (e *Emitter) planLocked(name string) plan {
	p := plan{
		regular: slices.Clone(e.regular[name]),
		once:    slices.Clone(e.once[name]),
		filters: e.features.filters,
	}

	f := e.features
	if f.wildcards {
		p.wildcard = e.matchingWildcardsLocked(name)
	}
	if f.catchAll {
		p.catchAll = slices.Clone(e.catchAll)
	}
	if f.pipes {
		p.pipes = slices.Clone(e.pipes)
	}
	return p
}

// claim selects a persistent registration for delivery. A limited
// listener's budget is spent here, before its filter runs, and the
// registration is removed when the budget reaches zero.
func (e *Emitter) claim(x *entry, args []any, filters bool) bool {
	m := x.meta
	if m == nil {
		return true
	}

	e.mu.Lock()
	if x.removed || m.remaining == 0 {
		e.mu.Unlock()
		return false
	}
	if m.remaining > 0 {
		m.remaining--
		if m.remaining == 0 {
			e.removeEntryLocked(x)
		}
	}
	m.lastAccess = e.cfg.clock.Now()
	filter := m.filter
	e.mu.Unlock()

	return !filters || filter == nil || filter(args)
}

// detach selects a once registration: it is removed before it runs, and
// skipped if another delivery removed it first. A filter rejection leaves
// it registered.
func (e *Emitter) detach(x *entry, args []any, filters bool) bool {
	if filters && x.meta != nil && x.meta.filter != nil {
		if !x.meta.filter(args) {
			return false
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.removeEntryLocked(x)
}

// Emit delivers args to every listener for name, synchronously and in
// order: regular listeners, once listeners, matching wildcards, catch-all
// listeners, then piped emitters. It reports whether any listener or pipe
// existed for name.
//
// A listener error stops delivery and is returned as a *ListenerError.
// Listeners that already ran are not rolled back. A listener panic
// propagates to the caller.
func (e *Emitter) Emit(name string, args ...any) (bool, error) {
	em := &emission{emitter: e, ctx: context.Background()}
	prev := e.current.Swap(em)
	defer e.current.Store(prev)

	e.mu.Lock()
	p := e.planLocked(name)
	e.mu.Unlock()

	if p.empty() {
		return false, nil
	}
	return true, e.deliver(em, name, args, &p)
}

// EmitAsync delivers like Emit but never fails: every listener runs, in
// order, even after a failure or StopPropagation. Listener errors and panics
// are logged. The returned future resolves, with whether any listener or
// pipe existed, once every task attached with Event.Go and every piped
// emitter's EmitAsync has settled.
func (e *Emitter) EmitAsync(ctx context.Context, name string, args ...any) *future.Future[bool] {
	if ctx == nil {
		ctx = context.Background()
	}

	group := dispatch.NewGroup(ctx,
		dispatch.WithLimit(e.cfg.asyncLimit),
		dispatch.WithExecutor(e.executor),
		dispatch.WithErrorHandler(func(ev any, res dispatch.Result) {
			evName, _ := ev.(string)
			e.logTaskFailure(evName, res)
		}),
	)
	em := &emission{emitter: e, ctx: ctx, async: true, group: group}

	e.mu.Lock()
	p := e.planLocked(name)
	e.mu.Unlock()

	had := !p.empty()
	if had {
		// Async delivery records failures instead of returning them.
		_ = e.deliver(em, name, args, &p)
	}

	f := future.New[bool]()
	if group.Started() == 0 {
		f.Resolve(had)
		return f
	}
	go func() {
		if failed := group.Wait(); failed > 0 {
			e.log.Debug("async emission settled with failures", "event", name, "failed", failed)
		}
		f.Resolve(had)
	}()
	return f
}

// deliver walks the plan phase by phase.
func (e *Emitter) deliver(em *emission, name string, args []any, p *plan) error {
	for _, x := range p.regular {
		if em.halted() {
			return nil
		}
		if !e.claim(x, args, p.filters) {
			continue
		}
		if err := e.invoke(em, x.listener, name, args); err != nil {
			return err
		}
	}

	for _, x := range p.once {
		if em.halted() {
			return nil
		}
		if !e.detach(x, args, p.filters) {
			continue
		}
		if err := e.invoke(em, x.listener, name, args); err != nil {
			return err
		}
	}

	for _, x := range p.wildcard {
		if em.halted() {
			return nil
		}
		var ok bool
		if x.kind == kindWildcardOnce {
			ok = e.detach(x, args, p.filters)
		} else {
			ok = e.claim(x, args, p.filters)
		}
		if !ok {
			continue
		}
		if err := e.invoke(em, x.listener, name, args); err != nil {
			return err
		}
	}

	if len(p.catchAll) > 0 {
		anyArgs := make([]any, 0, len(args)+1)
		anyArgs = append(anyArgs, name)
		anyArgs = append(anyArgs, args...)
		for _, x := range p.catchAll {
			if em.halted() {
				return nil
			}
			if !e.claim(x, anyArgs, p.filters) {
				continue
			}
			if err := e.invoke(em, x.listener, name, anyArgs); err != nil {
				return err
			}
		}
	}

	for _, pipe := range p.pipes {
		if em.halted() {
			return nil
		}
		if em.async {
			pf := pipe.EmitAsync(em.ctx, name, args...)
			em.group.Go(name, dispatch.HandlerFunc(func(ctx context.Context, _ any) error {
				_, err := pf.Wait(ctx)
				return err
			}))
			continue
		}
		if _, err := pipe.Emit(name, args...); err != nil {
			return err
		}
	}
	return nil
}

// invoke runs one listener. Synchronous emission returns its error wrapped;
// async emission runs it through the executor and logs failures. A done
// context does not skip the listener; it only reaches attached tasks.
func (e *Emitter) invoke(em *emission, l *Listener, name string, args []any) error {
	ev := &Event{Name: name, Args: args, em: em}

	if !em.async {
		if err := l.call(ev); err != nil {
			return &ListenerError{Event: name, ListenerID: l.ID(), Err: err}
		}
		return nil
	}

	res := e.executor.Run(em.ctx, ev, dispatch.HandlerFunc(func(_ context.Context, v any) error {
		return l.call(v.(*Event))
	}))
	if !res.IsSuccess() {
		e.log.Error("listener failed",
			"event", name,
			"listener", l.ID(),
			"panic", res.Panicked,
			"error", res.Err(),
		)
	}
	return nil
}

func (e *Emitter) logTaskFailure(name string, res dispatch.Result) {
	e.log.Error("event task failed",
		"event", name,
		"panic", res.Panicked,
		"error", res.Err(),
	)
}
