package dispatch

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Group runs handlers concurrently and waits for all of them to settle.
// Individual failures are reported to the ErrorHandler and counted, but
// never cancel siblings or fail the group.
type Group struct {
	ctx      context.Context
	eg       errgroup.Group
	executor *Executor
	onError  ErrorHandler

	started atomic.Int64
	failed  atomic.Int64
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithLimit caps the number of handlers running at once. Go blocks while
// the limit is reached. n <= 0 means no limit.
func WithLimit(n int) GroupOption {
	return func(g *Group) {
		if n > 0 {
			g.eg.SetLimit(n)
		}
	}
}

// WithErrorHandler sets the callback for failed handlers.
func WithErrorHandler(h ErrorHandler) GroupOption {
	return func(g *Group) {
		if h != nil {
			g.onError = h
		}
	}
}

// WithExecutor sets the executor used to run handlers.
func WithExecutor(e *Executor) GroupOption {
	return func(g *Group) {
		if e != nil {
			g.executor = e
		}
	}
}

// NewGroup creates a group whose handlers receive ctx.
func NewGroup(ctx context.Context, opts ...GroupOption) *Group {
	g := &Group{
		ctx:      ctx,
		executor: NewExecutor(),
		onError:  defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Go starts handler in its own goroutine.
func (g *Group) Go(event any, handler Handler) {
	g.started.Add(1)
	g.eg.Go(func() error {
		result := g.executor.Execute(g.ctx, event, handler)
		if !result.IsSuccess() {
			g.failed.Add(1)
			g.onError(event, result)
		}
		// Failures are absorbed so errgroup never short-circuits.
		return nil
	})
}

// Wait blocks until every started handler has settled and returns how many
// of them failed.
func (g *Group) Wait() int {
	_ = g.eg.Wait()
	return int(g.failed.Load())
}

// Started returns the number of handlers passed to Go.
func (g *Group) Started() int {
	return int(g.started.Load())
}
