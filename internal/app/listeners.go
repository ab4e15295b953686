package app

import (
	"path/filepath"

	"github.com/dshills/fanout/internal/config"
	"github.com/dshills/fanout/internal/event"
	"github.com/dshills/fanout/internal/script"
)

// register builds every listener declared in cfg on a fresh Subscriber.
// On error nothing stays registered and every loaded script is closed.
func (app *Application) register(cfg *config.Config) (*event.Subscriber, []*script.State, error) {
	sub := event.NewSubscriber(app.emitter)
	states := make(map[string]*script.State)
	var scripts []*script.State

	fail := func(err error) (*event.Subscriber, []*script.State, error) {
		sub.Close()
		closeScripts(scripts)
		return nil, nil, err
	}

	for i, lc := range cfg.Listeners {
		var fn event.HandlerFunc
		switch lc.Kind {
		case config.KindScript:
			path := resolveScriptPath(cfg.Source, lc.Script)
			st, ok := states[path]
			if !ok {
				var err error
				st, err = script.Load(path,
					script.WithEmitter(app.emitter),
					script.WithLogger(app.logger),
				)
				if err != nil {
					return fail(&ListenerConfigError{Index: i, Event: lc.Event, Err: err})
				}
				states[path] = st
				scripts = append(scripts, st)
			}
			function := lc.Function
			if function == "" {
				function = script.DefaultFunction
			}
			if !st.HasFunction(function) {
				return fail(&ListenerConfigError{Index: i, Event: lc.Event, Err: script.ErrFunctionNotFound})
			}
			fn = st.Listener(function)
		default:
			fn = app.printListener(i)
		}

		if lc.Event == "" {
			sub.OnAny(fn)
			continue
		}

		opts := listenerOptions(lc)
		switch {
		case lc.Once && lc.Prepend:
			sub.PrependOnce(lc.Event, fn, opts...)
		case lc.Once:
			sub.Once(lc.Event, fn, opts...)
		case lc.Prepend:
			sub.Prepend(lc.Event, fn, opts...)
		default:
			sub.On(lc.Event, fn, opts...)
		}
	}

	return sub, scripts, nil
}

func listenerOptions(lc config.ListenerConfig) []event.ListenerOption {
	var opts []event.ListenerOption
	if lc.Priority != 0 {
		opts = append(opts, event.WithPriority(lc.Priority))
	}
	if lc.Times > 0 {
		opts = append(opts, event.WithTimes(lc.Times))
	}
	if lc.TTL > 0 {
		opts = append(opts, event.WithTTL(lc.TTL.Std()))
	}
	if lc.MinArgs > 0 {
		opts = append(opts, event.WithFilter(event.FilterArgCount(lc.MinArgs)))
	}
	return opts
}

// resolveScriptPath makes relative script paths relative to the config file.
func resolveScriptPath(source, path string) string {
	if filepath.IsAbs(path) || source == "" {
		return path
	}
	return filepath.Join(filepath.Dir(source), path)
}

// printListener writes every delivery as a record tagged with the index of
// the listener in the config.
func (app *Application) printListener(index int) event.HandlerFunc {
	return func(ev *event.Event) error {
		args := ev.Args
		if args == nil {
			args = []any{}
		}
		return app.out.write(
			field{"listener", index},
			field{"event", ev.Name},
			field{"args", args},
		)
	}
}
