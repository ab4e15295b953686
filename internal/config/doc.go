// Package config loads fanout's configuration.
//
// Settings come from two layers, higher overriding lower:
//
//  1. A TOML or YAML file, chosen by extension (.toml, .yaml, .yml)
//  2. Environment variables prefixed with FANOUT_
//
// Environment names map onto settings by section: FANOUT_EMITTER_MAX_LISTENERS
// sets emitter.max_listeners. A few shorthands exist, such as FANOUT_LOG_LEVEL
// for logging.level.
//
// # File layout
//
//	[emitter]
//	auto_cleanup = true
//	auto_cleanup_threshold = "10m"  # or integer milliseconds
//	max_listeners = 20
//	async_limit = 8
//
//	[logging]
//	level = "debug"
//
//	[[listeners]]
//	event = "order.*"
//	kind = "print"
//	priority = 10
//
//	[[listeners]]
//	event = "order.created"
//	kind = "script"
//	script = "hooks/order.lua"
//	function = "on_created"
//	times = 3
//
// The watcher sub-package reports changes to the file so callers can reload.
package config
