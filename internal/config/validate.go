package config

import (
	"fmt"
	"strings"

	"github.com/dshills/fanout/internal/event/topic"
)

var validLevels = map[string]bool{
	"":        true,
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the configuration and returns ValidationErrors listing
// every problem found, or nil.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(path, msg string, value any, code ValidationErrorCode) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value, Code: code})
	}

	if c.Emitter.MaxListeners < 0 {
		add("emitter.max_listeners", "must not be negative", c.Emitter.MaxListeners, ErrCodeOutOfRange)
	}
	if c.Emitter.AsyncLimit < 0 {
		add("emitter.async_limit", "must not be negative", c.Emitter.AsyncLimit, ErrCodeOutOfRange)
	}
	if c.Emitter.AutoCleanup && c.Emitter.AutoCleanupThreshold <= 0 {
		add("emitter.auto_cleanup_threshold", "must be positive when auto_cleanup is on", c.Emitter.AutoCleanupThreshold, ErrCodeOutOfRange)
	}

	if !validLevels[strings.ToLower(c.Logging.Level)] {
		add("logging.level", "must be one of debug, info, warn, error", c.Logging.Level, ErrCodeInvalidEnum)
	}

	for i, l := range c.Listeners {
		p := fmt.Sprintf("listeners[%d]", i)
		if l.Event != "" && !topic.Topic(l.Event).IsValid() {
			add(p+".event", "must not contain empty segments", l.Event, ErrCodeInvalidFormat)
		}
		switch l.Kind {
		case "", KindPrint:
		case KindScript:
			if l.Script == "" {
				add(p+".script", "is required for script listeners", l.Script, ErrCodeRequiredMissing)
			}
		default:
			add(p+".kind", "must be print or script", l.Kind, ErrCodeInvalidEnum)
		}
		if l.Times < 0 {
			add(p+".times", "must not be negative", l.Times, ErrCodeOutOfRange)
		}
		if l.TTL < 0 {
			add(p+".ttl", "must not be negative", l.TTL, ErrCodeOutOfRange)
		}
		if l.MinArgs < 0 {
			add(p+".min_args", "must not be negative", l.MinArgs, ErrCodeOutOfRange)
		}
		if l.Once && l.Times > 0 {
			add(p+".times", "cannot be combined with once", l.Times, ErrCodeConflict)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
