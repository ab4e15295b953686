package event

import (
	"log/slog"
	"time"

	"github.com/dshills/fanout/internal/event/clock"
	"github.com/dshills/fanout/internal/logging"
)

const (
	// DefaultMaxListeners is the per-event count above which a leak warning
	// is logged.
	DefaultMaxListeners = 10

	// DefaultAutoCleanupThreshold is the idle period after which the sweeper
	// evicts a listener.
	DefaultAutoCleanupThreshold = 300000 * time.Millisecond
)

// Option configures an Emitter.
type Option func(*emitterConfig)

type emitterConfig struct {
	autoCleanup          bool
	autoCleanupThreshold time.Duration
	maxListeners         int
	logger               *slog.Logger
	clock                clock.Clock
	asyncLimit           int
}

func defaultEmitterConfig() emitterConfig {
	return emitterConfig{
		autoCleanupThreshold: DefaultAutoCleanupThreshold,
		maxListeners:         DefaultMaxListeners,
		clock:                clock.Real(),
	}
}

// WithAutoCleanup enables the idle sweeper.
func WithAutoCleanup(enabled bool) Option {
	return func(c *emitterConfig) {
		c.autoCleanup = enabled
	}
}

// WithAutoCleanupThreshold sets the idle period after which listeners are
// evicted. Non-positive values keep the default.
func WithAutoCleanupThreshold(d time.Duration) Option {
	return func(c *emitterConfig) {
		if d > 0 {
			c.autoCleanupThreshold = d
		}
	}
}

// WithMaxListeners sets the leak-warning threshold. Zero disables it.
func WithMaxListeners(n int) Option {
	return func(c *emitterConfig) {
		if n >= 0 {
			c.maxListeners = n
		}
	}
}

// WithLogger sets the logger. The default is logging.L() at construction.
func WithLogger(l *slog.Logger) Option {
	return func(c *emitterConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used for TTLs, combinator timeouts and the sweeper.
func WithClock(clk clock.Clock) Option {
	return func(c *emitterConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithAsyncLimit caps how many attached tasks EmitAsync runs at once.
// Zero means no limit.
func WithAsyncLimit(n int) Option {
	return func(c *emitterConfig) {
		if n >= 0 {
			c.asyncLimit = n
		}
	}
}

func (c *emitterConfig) resolveLogger() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.L()
}

// Filter decides per delivery whether a listener runs. It receives the
// emitted arguments.
type Filter func(args []any) bool

// ListenerOption configures a single registration.
type ListenerOption func(*listenerConfig)

type listenerConfig struct {
	priority int
	times    int
	ttl      time.Duration
	filter   Filter
}

func newListenerConfig(opts []ListenerOption) listenerConfig {
	var c listenerConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// needsMetadata reports whether the registration leaves the default path.
func (c listenerConfig) needsMetadata() bool {
	return c.priority != 0 || c.times > 0 || c.ttl > 0 || c.filter != nil
}

// WithPriority orders the listener among others for the same key. Higher
// runs first; equal priorities keep registration order.
func WithPriority(p int) ListenerOption {
	return func(c *listenerConfig) {
		c.priority = p
	}
}

// WithTimes removes the listener after n selected invocations.
// Non-positive n means unlimited.
func WithTimes(n int) ListenerOption {
	return func(c *listenerConfig) {
		if n > 0 {
			c.times = n
		}
	}
}

// WithTTL removes the listener once d has elapsed since registration,
// however often it ran.
func WithTTL(d time.Duration) ListenerOption {
	return func(c *listenerConfig) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithFilter skips the listener for deliveries the filter rejects.
func WithFilter(f Filter) ListenerOption {
	return func(c *listenerConfig) {
		c.filter = f
	}
}
