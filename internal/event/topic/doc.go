// Package topic provides event-name helpers and wildcard pattern matching for
// the emitter.
//
// # Event Names
//
// Event names are plain strings. By convention they use dot notation to form
// hierarchical namespaces:
//
//	user.created
//	order.item.added
//	cache.evicted
//
// # Wildcards
//
// A name containing "*" or "?" is a pattern:
//
//   - "**" matches any run of characters, separators included
//   - "*" matches any run of characters that contains no "."
//   - "?" matches exactly one character other than "."
//
// The literal patterns "*" and "**" match every event name.
//
// Examples:
//
//	user.*          matches user.created, user.123 (not user.created.extra)
//	user.**         matches user.created, user.created.extra
//	*.changed       matches config.changed, cursor.changed
//	order.?         matches order.a (not order.ab)
//	user*           matches user, users, user_created (not user.created)
//
// # Compilation
//
// Compile turns a pattern into a *Pattern. Compiled patterns are cached for
// the lifetime of the process, keyed by the raw pattern text, so callers never
// recompile on the emission path.
//
//	p := topic.Compile("user.*")
//	p.Match("user.created") // true
package topic
