// Package app wires the emitter to its configuration and to a JSON-lines
// event feed.
//
// Each input line is one command:
//
//	{"event": "order.created", "args": ["A-1", 12.5]}
//	{"event": "report.build", "async": true}
//	{"wait": "job.done", "timeout": "2s"}
//	{"race": ["job.done", "job.failed"], "timeout": 5000}
//
// Output is one JSON record per line: configured print listeners, results of
// unmatched or failed emissions, and settled waits and races.
package app

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/config/watcher"
	"github.com/dshills/fanout/internal/event"
	"github.com/dshills/fanout/internal/logging"
	"github.com/dshills/fanout/internal/script"
)

// Options configures the application.
type Options struct {
	// Input is the JSON-lines feed. Defaults to os.Stdin.
	Input io.Reader

	// Output receives JSON records. Defaults to os.Stdout.
	Output io.Writer

	// Pretty indents output records.
	Pretty bool

	// Watch reloads listeners when the configuration file changes.
	Watch bool

	// Logger overrides the global logger.
	Logger *slog.Logger

	// EmitterOptions are appended to the options derived from the config.
	EmitterOptions []event.Option
}

// Application owns the emitter and the listeners declared in the config.
type Application struct {
	mu sync.Mutex

	opts   Options
	cfg    *config.Config
	logger *slog.Logger
	out    *recordWriter

	emitter *event.Emitter

	// Registrations from the current config; replaced as a unit on Reload.
	subscriber *event.Subscriber
	scripts    []*script.State

	watcher *watcher.Watcher

	// pending tracks async emissions still in flight.
	pending sync.WaitGroup

	running atomic.Bool
	closed  atomic.Bool
}

// New creates an Application from cfg and registers its listeners.
func New(cfg *config.Config, opts Options) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.L()
	}

	app := &Application{
		opts:   opts,
		cfg:    cfg,
		logger: logger.With("component", "app"),
		out:    newRecordWriter(opts.Output, opts.Pretty),
	}

	emitterOpts := []event.Option{
		event.WithAutoCleanup(cfg.Emitter.AutoCleanup),
		event.WithAutoCleanupThreshold(cfg.Emitter.AutoCleanupThreshold.Std()),
		event.WithMaxListeners(cfg.Emitter.MaxListeners),
		event.WithAsyncLimit(cfg.Emitter.AsyncLimit),
		event.WithLogger(logger),
	}
	app.emitter = event.New(append(emitterOpts, opts.EmitterOptions...)...)

	sub, scripts, err := app.register(cfg)
	if err != nil {
		app.emitter.Destroy()
		return nil, &InitError{Component: "listeners", Err: err}
	}
	app.subscriber, app.scripts = sub, scripts

	if opts.Watch && cfg.Source != "" {
		if err := app.startWatcher(cfg.Source); err != nil {
			app.Shutdown()
			return nil, &InitError{Component: "config watcher", Err: err}
		}
	}

	app.logger.Debug("application ready",
		"listeners", len(cfg.Listeners),
		"scripts", len(scripts),
		"config", cfg.Source,
	)
	return app, nil
}

// Emitter returns the application's emitter.
func (app *Application) Emitter() *event.Emitter {
	return app.emitter
}

// Config returns the configuration currently applied.
func (app *Application) Config() *config.Config {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.cfg
}

// Shutdown stops the watcher, waits for in-flight async work, and releases
// every listener and script. It is safe to call more than once.
func (app *Application) Shutdown() {
	if !app.closed.CompareAndSwap(false, true) {
		return
	}

	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Warn("closing config watcher", "error", err)
		}
	}

	app.pending.Wait()

	app.mu.Lock()
	sub, scripts := app.subscriber, app.scripts
	app.subscriber, app.scripts = nil, nil
	app.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	closeScripts(scripts)
	app.emitter.Destroy()
}

func closeScripts(scripts []*script.State) {
	for _, s := range scripts {
		s.Close()
	}
}
