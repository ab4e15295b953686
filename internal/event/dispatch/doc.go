// Package dispatch runs emitter handlers with panic recovery.
//
// # Executor
//
// Executor runs one handler in the caller's goroutine, recovering panics
// into a Result instead of letting them unwind. The emitter's asynchronous
// emission path uses it so that one failing listener cannot stop the rest.
//
//	exec := dispatch.NewExecutor(
//	    dispatch.WithExecutorPanicHandler(func(event any, v any, stack []byte) {
//	        slog.Error("listener panic", "event", event, "value", v)
//	    }),
//	)
//	result := exec.Execute(ctx, "user.created", handler)
//	if !result.IsSuccess() {
//	    // inspect result.Error or result.PanicValue
//	}
//
// # Group
//
// Group is a completion aggregator: it starts handlers concurrently, waits
// for every one of them, and reports failures through an ErrorHandler
// without failing the whole. It is built on errgroup, with an optional
// concurrency limit.
//
//	g := dispatch.NewGroup(ctx, dispatch.WithLimit(8))
//	for _, task := range tasks {
//	    g.Go("user.created", task)
//	}
//	failed := g.Wait()
package dispatch
