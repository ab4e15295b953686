package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/fanout/internal/event"
)

// maxLineSize bounds a single feed line.
const maxLineSize = 1 << 20

// Run processes the input feed until EOF or until ctx is done. At EOF it
// waits for async emissions, then for waits and races that carry a timeout;
// waits without one are abandoned and reported as such.
//
// Malformed lines produce error records and do not stop the feed. Run
// returns ctx.Err() when cancelled, or the first read or write error.
func (app *Application) Run(ctx context.Context) error {
	if app.closed.Load() {
		return ErrShutdown
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	feedCtx, closeFeed := context.WithCancel(ctx)
	defer closeFeed()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(app.opts.Input)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-feedCtx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	f := &feed{app: app, ctx: feedCtx}
	var runErr error

loop:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					runErr = fmt.Errorf("reading feed: %w", err)
				}
				break loop
			}
			f.n++
			if err := f.process(line); err != nil {
				runErr = err
				break loop
			}
		}
	}

	app.pending.Wait()
	closeFeed()
	f.waiters.Wait()

	return runErr
}

// feed is the state of one Run.
type feed struct {
	app *Application
	ctx context.Context
	n   int

	// waiters tracks wait and race commands; app.pending tracks async emits.
	waiters waitGroup
}

// process handles one line. Only output failures are returned; everything
// else becomes an error record.
func (f *feed) process(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	if !gjson.Valid(line) {
		return f.lineError(errors.New("invalid JSON"))
	}

	cmd := gjson.Parse(line)
	if !cmd.IsObject() {
		return f.lineError(fmt.Errorf("%w: expected an object", ErrInvalidCommand))
	}

	timeout, err := parseTimeout(cmd.Get("timeout"))
	if err != nil {
		return f.lineError(err)
	}

	switch {
	case cmd.Get("event").Exists():
		return f.emit(cmd)
	case cmd.Get("wait").Exists():
		return f.wait(cmd.Get("wait").String(), timeout)
	case cmd.Get("race").Exists():
		return f.race(cmd.Get("race"), timeout)
	default:
		return f.lineError(fmt.Errorf("%w: want one of event, wait, race", ErrInvalidCommand))
	}
}

func (f *feed) lineError(err error) error {
	err = &LineError{Line: f.n, Err: err}
	f.app.logger.Debug("feed line rejected", "error", err)
	return f.app.out.write(
		field{"line", f.n},
		field{"error", err.Error()},
	)
}

func (f *feed) emit(cmd gjson.Result) error {
	app := f.app
	name := cmd.Get("event").String()
	if name == "" {
		return f.lineError(fmt.Errorf("%w: empty event name", ErrInvalidCommand))
	}
	args := parseArgs(cmd.Get("args"))

	if cmd.Get("async").Bool() {
		fut := app.emitter.EmitAsync(f.ctx, name, args...)
		app.pending.Add(1)
		go func() {
			defer app.pending.Done()
			matched, _ := fut.Wait(context.Background())
			fields := []field{{"event", name}, {"async", true}, {"matched", matched}}
			if !matched {
				fields = append(fields, app.suggestion(name)...)
			}
			if err := app.out.write(fields...); err != nil {
				app.logger.Error("writing record", "error", err)
			}
		}()
		return nil
	}

	matched, err := app.emitter.Emit(name, args...)
	switch {
	case err != nil:
		return app.out.write(
			field{"line", f.n},
			field{"event", name},
			field{"error", err.Error()},
		)
	case !matched:
		fields := []field{{"event", name}, {"matched", false}}
		return app.out.write(append(fields, app.suggestion(name)...)...)
	}
	return nil
}

func (f *feed) wait(name string, timeout time.Duration) error {
	if name == "" {
		return f.lineError(fmt.Errorf("%w: empty wait name", ErrInvalidCommand))
	}
	app := f.app
	fut := app.emitter.WaitFor(name, timeout)
	ctx := f.waitContext(timeout)

	f.waiters.Go(func() {
		args, err := fut.Wait(ctx)
		fields := []field{{"wait", name}}
		if err != nil {
			fields = append(fields, settleError(err)...)
		} else {
			fields = append(fields, field{"args", nonNil(args)})
		}
		if err := app.out.write(fields...); err != nil {
			app.logger.Error("writing record", "error", err)
		}
	})
	return nil
}

func (f *feed) race(raw gjson.Result, timeout time.Duration) error {
	var names []string
	for _, r := range raw.Array() {
		if s := r.String(); s != "" {
			names = append(names, s)
		}
	}

	app := f.app
	fut := app.emitter.Race(names, timeout)
	ctx := f.waitContext(timeout)

	f.waiters.Go(func() {
		res, err := fut.Wait(ctx)
		fields := []field{{"race", nonNilStrings(names)}}
		if err != nil {
			fields = append(fields, settleError(err)...)
		} else {
			fields = append(fields, field{"event", res.Event}, field{"args", nonNil(res.Args)})
		}
		if err := app.out.write(fields...); err != nil {
			app.logger.Error("writing record", "error", err)
		}
	})
	return nil
}

// waitContext returns the context a wait or race blocks on. Those with a
// timeout always run to completion; the rest end with the feed.
func (f *feed) waitContext(timeout time.Duration) context.Context {
	if timeout > 0 {
		return context.Background()
	}
	return f.ctx
}

func settleError(err error) []field {
	switch {
	case errors.Is(err, event.ErrTimeout):
		return []field{{"timeout", true}, {"error", err.Error()}}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return []field{{"error", "feed closed before the event arrived"}}
	default:
		return []field{{"error", err.Error()}}
	}
}

// suggestion returns a "suggest" field naming the closest registered event,
// if any is close.
func (app *Application) suggestion(name string) []field {
	names := app.emitter.EventNames()
	candidates := append(names.Regular, names.Once...)
	if s := suggest(name, candidates); s != "" {
		return []field{{"suggest", s}}
	}
	return nil
}

// parseArgs turns the "args" member into emit arguments. A non-array value
// is a single argument. Numbers decode as float64.
func parseArgs(r gjson.Result) []any {
	if !r.Exists() {
		return nil
	}
	if !r.IsArray() {
		return []any{r.Value()}
	}
	items := r.Array()
	args := make([]any, len(items))
	for i, item := range items {
		args[i] = item.Value()
	}
	return args
}

// parseTimeout reads a timeout given as a duration string or as integer
// milliseconds. A missing timeout is zero.
func parseTimeout(r gjson.Result) (time.Duration, error) {
	switch r.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number:
		if r.Num < 0 {
			return 0, fmt.Errorf("negative timeout %v", r.Num)
		}
		return time.Duration(r.Num * float64(time.Millisecond)), nil
	case gjson.String:
		d, err := time.ParseDuration(r.Str)
		if err != nil {
			return 0, fmt.Errorf("invalid timeout: %w", err)
		}
		if d < 0 {
			return 0, fmt.Errorf("negative timeout %v", d)
		}
		return d, nil
	default:
		return 0, fmt.Errorf("invalid timeout %s", r.Raw)
	}
}

// waitGroup is a sync.WaitGroup with a Go helper.
type waitGroup struct {
	sync.WaitGroup
}

func (wg *waitGroup) Go(fn func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
}

func nonNil(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
