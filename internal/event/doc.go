// Package event provides an in-process event emitter.
//
// Listeners are registered against exact event names, wildcard patterns,
// or every event. Emit delivers an argument list to them synchronously;
// EmitAsync delivers the same way but tolerates failures and waits for any
// asynchronous work the listeners attach. WaitFor and Race turn future
// emissions into futures.
//
// # Listeners
//
// A Listener is a handle around a HandlerFunc. The handle is the identity
// used for removal, so keep it:
//
//	l := event.NewListener(func(ev *event.Event) error {
//	    fmt.Println(ev.Name, ev.Args)
//	    return nil
//	})
//	em := event.New()
//	em.On("user.created", l)
//	em.Emit("user.created", "alice")
//	em.Off("user.created", l)
//
// # Delivery Order
//
// For one emission, listeners run in this order:
//
//  1. Regular listeners for the exact name
//  2. Once listeners for the exact name, each removed before it runs
//  3. Wildcard listeners whose pattern matches the name
//  4. Catch-all listeners, which receive the name as their first argument
//  5. Piped emitters, which run their own delivery
//
// Within a group, higher priority runs first and equal priorities keep
// registration order. Prepend places a listener ahead of others of the same
// priority.
//
// # Wildcards
//
// A key containing * or ? is a pattern. "." separates segments:
//
//   - "*" and "**" alone match every name
//   - "*" matches characters within one segment: "user.*" matches
//     "user.created" but not "user.created.extra"
//   - "**" matches across segments: "user.**" matches "user.created.extra"
//   - "?" matches exactly one character within a segment
//
// # Registration Options
//
//	em.On("tick", l,
//	    event.WithPriority(10),           // run before lower priorities
//	    event.WithTimes(3),               // remove after three deliveries
//	    event.WithTTL(time.Minute),       // remove after a minute
//	    event.WithFilter(event.FilterArgCount(1)),
//	)
//
// A listener registered WithTimes spends one delivery each time it is
// selected, even when its filter then rejects the arguments.
//
// # Stopping Propagation
//
// A listener calling Event.StopPropagation prevents every later listener,
// in every remaining group and pipe, from receiving that emission. The next
// emission starts fresh. EmitAsync ignores it.
//
// # Errors
//
// A listener error aborts Emit and is returned as a *ListenerError; a panic
// propagates to the caller of Emit. EmitAsync instead logs every failure and
// still runs the remaining listeners. WaitFor and Race reject with a
// *TimeoutError, which matches ErrTimeout.
//
// # Idle Cleanup
//
// WithAutoCleanup starts a sweeper that evicts listeners not delivered to
// within the cleanup threshold. Destroy stops it.
package event
