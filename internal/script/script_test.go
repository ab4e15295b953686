package script

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/dshills/fanout/internal/event"
)

func newTestState(t *testing.T, code string, opts ...StateOption) *State {
	t.Helper()
	s := NewState(opts...)
	t.Cleanup(func() { s.Close() })
	if err := s.DoString(code); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	return s
}

func TestState_Sandbox(t *testing.T) {
	s := NewState()
	defer s.Close()

	for _, name := range []string{"io", "os", "debug", "package", "dofile", "loadfile", "load", "loadstring", "require"} {
		t.Run(name, func(t *testing.T) {
			if err := s.DoString("assert(" + name + " == nil)"); err != nil {
				t.Errorf("%s is reachable from scripts: %v", name, err)
			}
		})
	}

	for _, code := range []string{
		`assert(string.upper("a") == "A")`,
		`assert(math.floor(1.5) == 1)`,
		`local t = {} table.insert(t, 1) assert(#t == 1)`,
	} {
		if err := s.DoString(code); err != nil {
			t.Errorf("DoString(%q) error = %v", code, err)
		}
	}
}

func TestState_Call(t *testing.T) {
	s := newTestState(t, `
function add(a, b) return a + b end
function info(t) return t.name, #t.tags end
function nothing() end
`)

	got, err := s.Call("add", 2, 3)
	if err != nil {
		t.Fatalf("Call(add) error = %v", err)
	}
	if !reflect.DeepEqual(got, []any{int64(5)}) {
		t.Errorf("Call(add) = %v, want [5]", got)
	}

	got, err = s.Call("info", map[string]any{"name": "job", "tags": []any{"a", "b"}})
	if err != nil {
		t.Fatalf("Call(info) error = %v", err)
	}
	if !reflect.DeepEqual(got, []any{"job", int64(2)}) {
		t.Errorf("Call(info) = %v, want [job 2]", got)
	}

	got, err = s.Call("nothing")
	if err != nil || len(got) != 0 {
		t.Errorf("Call(nothing) = (%v, %v), want empty", got, err)
	}

	if _, err := s.Call("missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("Call(missing) error = %v, want ErrFunctionNotFound", err)
	}
}

func TestState_Closed(t *testing.T) {
	s := NewState()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !s.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if err := s.DoString("x = 1"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString after Close = %v, want ErrStateClosed", err)
	}
	if _, err := s.Call("f"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call after Close = %v, want ErrStateClosed", err)
	}
	if s.HasFunction("f") {
		t.Error("HasFunction after Close = true")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hooks.lua")
	if err := os.WriteFile(path, []byte(`function on_event(name) return name end`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	defer s.Close()

	if s.Name() != path {
		t.Errorf("Name() = %q, want %q", s.Name(), path)
	}
	if !s.HasFunction(DefaultFunction) {
		t.Error("on_event not defined after Load")
	}

	if _, err := Load(filepath.Join(dir, "missing.lua")); err == nil {
		t.Error("Load of a missing file should fail")
	}
}

func TestState_Print(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	newTestState(t, `print("hello", 42)`, WithLogger(logger), WithName("greet.lua"))

	out := buf.String()
	if !strings.Contains(out, "hello\t42") && !strings.Contains(out, `"hello\t42"`) {
		t.Errorf("print output not logged: %q", out)
	}
	if !strings.Contains(out, "script=greet.lua") {
		t.Errorf("log line missing script attribute: %q", out)
	}
}

func TestListener_ReceivesEvent(t *testing.T) {
	s := newTestState(t, `
seen = {}
function on_event(name, id, total)
  seen.name = name
  seen.id = id
  seen.total = total
end
`)

	e := event.New()
	e.On("order.*", event.NewListener(s.Listener("")))

	if _, err := e.Emit("order.created", "A-1", 12.5); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if err := s.DoString(`assert(seen.name == "order.created" and seen.id == "A-1" and seen.total == 12.5)`); err != nil {
		t.Errorf("script did not see the event: %v", err)
	}
}

func TestListener_ReturnFalseStops(t *testing.T) {
	s := newTestState(t, `function gate(name, n) return n < 10 end`)

	e := event.New()
	var after int
	e.On("tick", event.NewListener(s.Listener("gate")), event.WithPriority(1))
	e.On("tick", event.NewListener(func(*event.Event) error {
		after++
		return nil
	}))

	e.Emit("tick", 5)
	e.Emit("tick", 50)

	if after != 1 {
		t.Errorf("listener after gate ran %d times, want 1", after)
	}
}

func TestListener_LuaError(t *testing.T) {
	s := newTestState(t, `function on_event(name) error("bad input") end`, WithName("fail.lua"))

	e := event.New()
	e.On("x", event.NewListener(s.Listener("")))

	_, err := e.Emit("x")
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("Emit() error = %v, want *script.Error", err)
	}
	if serr.Script != "fail.lua" || serr.Function != DefaultFunction || serr.Event != "x" {
		t.Errorf("Error = %+v", serr)
	}
	if !strings.Contains(err.Error(), "bad input") {
		t.Errorf("error text %q should carry the Lua message", err.Error())
	}
}

func TestListener_Emit(t *testing.T) {
	e := event.New()
	s := newTestState(t, `
function on_event(name, id)
  emit("audit", name, id)
  emit("audit.count", 1)
end
`, WithEmitter(e))

	var audits [][]any
	e.On("audit", event.NewListener(func(ev *event.Event) error {
		audits = append(audits, ev.Args)
		return nil
	}))
	e.On("order", event.NewListener(s.Listener("")))

	if _, err := e.Emit("order", "A-7"); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if len(audits) != 1 || !reflect.DeepEqual(audits[0], []any{"order", "A-7"}) {
		t.Errorf("audits = %v, want [[order A-7]]", audits)
	}
}

func TestListener_EmitWithoutEmitter(t *testing.T) {
	s := newTestState(t, `function on_event() emit("x") end`)

	e := event.New()
	e.On("y", event.NewListener(s.Listener("")))

	if _, err := e.Emit("y"); err == nil {
		t.Error("emit without an emitter should fail the delivery")
	}
}

func TestListener_ReentrantEmit(t *testing.T) {
	e := event.New()
	s := newTestState(t, `
count = 0
function on_event(name, depth)
  count = count + 1
  if depth < 3 then emit("loop", depth + 1) end
end
`, WithEmitter(e))

	e.On("loop", event.NewListener(s.Listener("")))
	if _, err := e.Emit("loop", 0); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	if err := s.DoString(`assert(count == 4, "count=" .. count)`); err != nil {
		t.Error(err)
	}
}

func TestListener_Concurrent(t *testing.T) {
	s := newTestState(t, `
total = 0
function on_event(name, n) total = total + n end
`)
	e := event.New()
	e.On("add", event.NewListener(s.Listener("")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.Emit("add", 1)
		}()
	}
	wg.Wait()

	if err := s.DoString(`assert(total == 20, "total=" .. total)`); err != nil {
		t.Error(err)
	}
}

func TestConvert(t *testing.T) {
	s := NewState()
	defer s.Close()

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"int", 7, int64(7)},
		{"uint8", uint8(3), int64(3)},
		{"float", 1.25, 1.25},
		{"string", "s", "s"},
		{"bytes", []byte("b"), "b"},
		{"slice", []any{1, "a"}, []any{int64(1), "a"}},
		{"strings", []string{"x", "y"}, []any{"x", "y"}},
		{"map", map[string]any{"k": 1}, map[string]any{"k": int64(1)}},
		{"string map", map[string]string{"k": "v"}, map[string]any{"k": "v"}},
		{"empty slice", []any{}, map[string]any{}},
		{"struct", struct{ A int }{1}, "{1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := toGo(toLua(s.L, tt.in))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("round trip of %#v = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConvert_Cycle(t *testing.T) {
	s := newTestState(t, `cyc = {} cyc.self = cyc`)
	got := toGo(s.L.GetGlobal("cyc"))

	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("toGo(cyc) = %T, want map", got)
	}
	if m["self"] != nil {
		t.Errorf("cyclic reference = %v, want nil", m["self"])
	}
}
