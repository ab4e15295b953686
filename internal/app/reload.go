package app

import (
	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/config/watcher"
)

// Reload applies cfg: the listeners from the previous config are removed and
// cfg's are registered, and the leak-warning threshold is updated. If any
// listener of cfg cannot be built, the previous config stays in effect.
//
// Auto-cleanup and the async limit are fixed when the emitter is created;
// changes to them are logged and ignored until restart.
func (app *Application) Reload(cfg *config.Config) error {
	if app.closed.Load() {
		return ErrShutdown
	}

	app.mu.Lock()
	defer app.mu.Unlock()

	sub, scripts, err := app.register(cfg)
	if err != nil {
		return err
	}

	old, oldScripts := app.subscriber, app.scripts
	if old != nil {
		old.Close()
	}
	closeScripts(oldScripts)

	prev := app.cfg
	app.subscriber, app.scripts, app.cfg = sub, scripts, cfg
	app.emitter.SetMaxListeners(cfg.Emitter.MaxListeners)

	if cfg.Emitter.AutoCleanup != prev.Emitter.AutoCleanup ||
		cfg.Emitter.AutoCleanupThreshold != prev.Emitter.AutoCleanupThreshold ||
		cfg.Emitter.AsyncLimit != prev.Emitter.AsyncLimit {
		app.logger.Warn("emitter settings changed; restart to apply",
			"auto_cleanup", cfg.Emitter.AutoCleanup,
			"auto_cleanup_threshold", cfg.Emitter.AutoCleanupThreshold,
			"async_limit", cfg.Emitter.AsyncLimit,
		)
	}

	app.logger.Info("configuration reloaded", "listeners", len(cfg.Listeners), "source", cfg.Source)
	return nil
}

func (app *Application) startWatcher(path string) error {
	w, err := watcher.New(watcher.WithLogger(app.logger))
	if err != nil {
		return err
	}
	w.OnChange(func(ev watcher.Event) {
		if ev.Op == watcher.OpRemove {
			app.logger.Warn("config file removed; keeping current listeners", "path", ev.Path)
			return
		}
		cfg, err := config.Load(path)
		if err != nil {
			app.logger.Error("reloading config", "path", ev.Path, "error", err)
			return
		}
		if err := app.Reload(cfg); err != nil {
			app.logger.Error("applying config", "path", ev.Path, "error", err)
		}
	})
	if err := w.Watch(path); err != nil {
		if cerr := w.Close(); cerr != nil {
			app.logger.Warn("closing config watcher", "error", cerr)
		}
		return err
	}
	app.watcher = w
	return nil
}
