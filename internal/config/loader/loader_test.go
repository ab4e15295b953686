package loader

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"
	"testing"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) Open(name string) (fs.File, error) {
	return nil, fs.ErrNotExist
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		ok     bool
	}{
		{"fanout.toml", FormatTOML, true},
		{"/etc/fanout/config.TOML", FormatTOML, true},
		{"fanout.yaml", FormatYAML, true},
		{"fanout.yml", FormatYAML, true},
		{"fanout.json", "", false},
		{"fanout", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, ok := DetectFormat(tt.path)
			if format != tt.format || ok != tt.ok {
				t.Errorf("DetectFormat(%q) = (%q, %v), want (%q, %v)", tt.path, format, ok, tt.format, tt.ok)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	memfs := NewMemFS()

	l, err := ForPath(memfs, "a.yml")
	if err != nil {
		t.Fatalf("ForPath(yml) error = %v", err)
	}
	if _, ok := l.(*YAMLLoader); !ok {
		t.Errorf("ForPath(yml) = %T, want *YAMLLoader", l)
	}

	l, err = ForPath(memfs, "a.toml")
	if err != nil {
		t.Fatalf("ForPath(toml) error = %v", err)
	}
	if _, ok := l.(*TOMLLoader); !ok {
		t.Errorf("ForPath(toml) = %T, want *TOMLLoader", l)
	}

	_, err = ForPath(memfs, "a.ini")
	var fmtErr *UnsupportedFormatError
	if !errors.As(err, &fmtErr) {
		t.Errorf("ForPath(ini) error = %v, want *UnsupportedFormatError", err)
	}
}

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/fanout.toml", `
[emitter]
max_listeners = 20
auto_cleanup = true
auto_cleanup_threshold = "10m"

[[listeners]]
event = "order.*"
kind = "print"
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/fanout.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	emitter, ok := config["emitter"].(map[string]any)
	if !ok {
		t.Fatalf("emitter section = %T, want map", config["emitter"])
	}
	if emitter["max_listeners"] != int64(20) {
		t.Errorf("max_listeners = %v (%T), want 20", emitter["max_listeners"], emitter["max_listeners"])
	}
	if emitter["auto_cleanup"] != true {
		t.Errorf("auto_cleanup = %v, want true", emitter["auto_cleanup"])
	}

	listeners, ok := config["listeners"].([]any)
	if !ok || len(listeners) != 1 {
		t.Fatalf("listeners = %v, want one entry", config["listeners"])
	}
}

func TestTOMLLoader_LoadNonExistent(t *testing.T) {
	config, err := NewTOMLLoaderWithFS(NewMemFS(), "/missing.toml").Load()
	if err != nil {
		t.Errorf("Load of missing file returned error: %v", err)
	}
	if config != nil {
		t.Errorf("Load of missing file = %v, want nil", config)
	}
}

func TestTOMLLoader_LoadInvalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[emitter\nmax_listeners = ")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
	if perr.Path != "/bad.toml" {
		t.Errorf("ParseError.Path = %q, want /bad.toml", perr.Path)
	}
	if perr.Line == 0 {
		t.Error("ParseError.Line should be set for TOML decode errors")
	}
}

func TestTOMLLoader_LoadFromReader(t *testing.T) {
	config, err := NewTOMLLoader("").LoadFromReader(strings.NewReader(`level = "debug"`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if config["level"] != "debug" {
		t.Errorf("level = %v, want debug", config["level"])
	}
}

func TestYAMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/fanout.yaml", `
emitter:
  max_listeners: 5
logging:
  level: warn
listeners:
  - event: "job.**"
    kind: script
    script: hooks/job.lua
`)

	config, err := NewYAMLLoaderWithFS(memfs, "/fanout.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	emitter := config["emitter"].(map[string]any)
	if emitter["max_listeners"] != 5 {
		t.Errorf("max_listeners = %v (%T), want 5", emitter["max_listeners"], emitter["max_listeners"])
	}
	listeners := config["listeners"].([]any)
	first := listeners[0].(map[string]any)
	if first["script"] != "hooks/job.lua" {
		t.Errorf("script = %v, want hooks/job.lua", first["script"])
	}
}

func TestYAMLLoader_LoadInvalid(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.yaml", "emitter: [unclosed")

	_, err := NewYAMLLoaderWithFS(memfs, "/bad.yaml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *ParseError", err)
	}
}

func TestYAMLLoader_LoadNonExistent(t *testing.T) {
	config, err := NewYAMLLoaderWithFS(NewMemFS(), "/missing.yaml").Load()
	if err != nil || config != nil {
		t.Errorf("Load of missing file = (%v, %v), want (nil, nil)", config, err)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"emitter": map[string]any{"max_listeners": int64(10), "auto_cleanup": false},
		"logging": map[string]any{"level": "info"},
	}
	src := map[string]any{
		"emitter":   map[string]any{"max_listeners": int64(3)},
		"listeners": []any{"x"},
	}

	got := DeepMerge(dst, src)
	want := map[string]any{
		"emitter":   map[string]any{"max_listeners": int64(3), "auto_cleanup": false},
		"logging":   map[string]any{"level": "info"},
		"listeners": []any{"x"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DeepMerge() = %v, want %v", got, want)
	}
}

func TestDeepMerge_NilInputs(t *testing.T) {
	if got := DeepMerge(nil, map[string]any{"a": 1}); got["a"] != 1 {
		t.Errorf("DeepMerge(nil, src) = %v", got)
	}
	if got := DeepMerge(map[string]any{"a": 1}, nil); got["a"] != 1 {
		t.Errorf("DeepMerge(dst, nil) = %v", got)
	}
}

func TestClone(t *testing.T) {
	src := map[string]any{
		"nested": map[string]any{"k": "v"},
		"list":   []any{map[string]any{"x": 1}},
	}
	dst := Clone(src)

	dst["nested"].(map[string]any)["k"] = "changed"
	dst["list"].([]any)[0].(map[string]any)["x"] = 2

	if src["nested"].(map[string]any)["k"] != "v" {
		t.Error("Clone shares nested maps")
	}
	if src["list"].([]any)[0].(map[string]any)["x"] != 1 {
		t.Error("Clone shares maps inside slices")
	}
	if Clone(nil) != nil {
		t.Error("Clone(nil) should be nil")
	}
}
