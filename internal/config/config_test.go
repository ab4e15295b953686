package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dshills/fanout/internal/config/loader"
)

type memFS map[string]string

func (m memFS) Open(name string) (fs.File, error) { return nil, fs.ErrNotExist }

func (m memFS) ReadFile(path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(s), nil
}

type staticEnv map[string]any

func (e staticEnv) Load() (map[string]any, error) { return loader.Clone(e), nil }

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Emitter.MaxListeners != 10 {
		t.Errorf("MaxListeners = %d, want 10", cfg.Emitter.MaxListeners)
	}
	if cfg.Emitter.AutoCleanup {
		t.Error("AutoCleanup should default to false")
	}
	if cfg.Emitter.AutoCleanupThreshold.Std() != 5*time.Minute {
		t.Errorf("AutoCleanupThreshold = %v, want 5m", cfg.Emitter.AutoCleanupThreshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoadFS_TOML(t *testing.T) {
	fsys := memFS{"/fanout.toml": `
[emitter]
auto_cleanup = true
auto_cleanup_threshold = 1500
max_listeners = 0
async_limit = 4

[logging]
level = "debug"

[[listeners]]
event = "order.*"
priority = 10
ttl = "30s"

[[listeners]]
event = "order.created"
kind = "script"
script = "hooks/order.lua"
function = "on_created"
times = 3
min_args = 1
`}

	cfg, err := LoadFS(fsys, "/fanout.toml", nil)
	if err != nil {
		t.Fatalf("LoadFS failed: %v", err)
	}

	if !cfg.Emitter.AutoCleanup {
		t.Error("AutoCleanup = false, want true")
	}
	if cfg.Emitter.AutoCleanupThreshold.Std() != 1500*time.Millisecond {
		t.Errorf("integer threshold = %v, want 1.5s", cfg.Emitter.AutoCleanupThreshold)
	}
	if cfg.Emitter.MaxListeners != 0 {
		t.Errorf("explicit max_listeners = 0 was overridden: %d", cfg.Emitter.MaxListeners)
	}
	if cfg.Emitter.AsyncLimit != 4 {
		t.Errorf("AsyncLimit = %d, want 4", cfg.Emitter.AsyncLimit)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.MaxBackups != Default().Logging.MaxBackups {
		t.Error("unset logging fields should keep their defaults")
	}
	if cfg.Source != "/fanout.toml" {
		t.Errorf("Source = %q", cfg.Source)
	}

	if len(cfg.Listeners) != 2 {
		t.Fatalf("len(Listeners) = %d, want 2", len(cfg.Listeners))
	}
	first, second := cfg.Listeners[0], cfg.Listeners[1]
	if first.Event != "order.*" || first.Priority != 10 || first.TTL.Std() != 30*time.Second {
		t.Errorf("first listener = %+v", first)
	}
	if second.Kind != KindScript || second.Script != "hooks/order.lua" || second.Function != "on_created" ||
		second.Times != 3 || second.MinArgs != 1 {
		t.Errorf("second listener = %+v", second)
	}
}

func TestLoadFS_YAML(t *testing.T) {
	fsys := memFS{"/fanout.yml": `
emitter:
  max_listeners: 25
  auto_cleanup_threshold: 2m
listeners:
  - event: "job.**"
    once: true
    prepend: true
`}

	cfg, err := LoadFS(fsys, "/fanout.yml", nil)
	if err != nil {
		t.Fatalf("LoadFS failed: %v", err)
	}
	if cfg.Emitter.MaxListeners != 25 {
		t.Errorf("MaxListeners = %d, want 25", cfg.Emitter.MaxListeners)
	}
	if cfg.Emitter.AutoCleanupThreshold.Std() != 2*time.Minute {
		t.Errorf("threshold = %v, want 2m", cfg.Emitter.AutoCleanupThreshold)
	}
	if len(cfg.Listeners) != 1 || !cfg.Listeners[0].Once || !cfg.Listeners[0].Prepend {
		t.Errorf("Listeners = %+v", cfg.Listeners)
	}
}

func TestLoadFS_EnvOverridesFile(t *testing.T) {
	fsys := memFS{"/fanout.toml": `
[emitter]
max_listeners = 20

[logging]
level = "info"
`}
	env := staticEnv{
		"emitter": map[string]any{"max_listeners": int64(3), "auto_cleanup_threshold": "45s"},
		"logging": map[string]any{"level": "error"},
	}

	cfg, err := LoadFS(fsys, "/fanout.toml", env)
	if err != nil {
		t.Fatalf("LoadFS failed: %v", err)
	}
	if cfg.Emitter.MaxListeners != 3 {
		t.Errorf("MaxListeners = %d, want env value 3", cfg.Emitter.MaxListeners)
	}
	if cfg.Emitter.AutoCleanupThreshold.Std() != 45*time.Second {
		t.Errorf("threshold = %v, want 45s", cfg.Emitter.AutoCleanupThreshold)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Level = %q, want error", cfg.Logging.Level)
	}
}

func TestLoadFS_NoFile(t *testing.T) {
	cfg, err := LoadFS(memFS{}, "", staticEnv{"emitter": map[string]any{"async_limit": int64(2)}})
	if err != nil {
		t.Fatalf("LoadFS failed: %v", err)
	}
	if cfg.Emitter.AsyncLimit != 2 {
		t.Errorf("AsyncLimit = %d, want 2", cfg.Emitter.AsyncLimit)
	}
	if cfg.Emitter.MaxListeners != 10 {
		t.Errorf("MaxListeners = %d, want default 10", cfg.Emitter.MaxListeners)
	}
}

func TestLoadFS_Errors(t *testing.T) {
	fsys := memFS{
		"/bad.toml":      "[emitter\n",
		"/type.toml":     "[emitter]\nmax_listeners = \"lots\"\n",
		"/duration.yaml": "emitter:\n  auto_cleanup_threshold: soon\n",
		"/invalid.toml":  "[emitter]\nmax_listeners = -1\n",
	}

	tests := []struct {
		name  string
		path  string
		check func(error) bool
	}{
		{"missing file", "/nope.toml", func(err error) bool { return errors.Is(err, ErrFileNotFound) }},
		{"unsupported extension", "/fanout.ini", func(err error) bool {
			var e *loader.UnsupportedFormatError
			return errors.As(err, &e)
		}},
		{"syntax error", "/bad.toml", func(err error) bool {
			var e *loader.ParseError
			return errors.As(err, &e)
		}},
		{"wrong type", "/type.toml", func(err error) bool { return errors.Is(err, ErrTypeMismatch) }},
		{"bad duration", "/duration.yaml", func(err error) bool { return errors.Is(err, ErrTypeMismatch) }},
		{"invalid value", "/invalid.toml", func(err error) bool { return errors.Is(err, ErrValidationFailed) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(fsys, tt.path, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !tt.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoad_RealFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fanout.yaml")
	if err := os.WriteFile(path, []byte("emitter:\n  max_listeners: 7\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FANOUT_EMITTER_ASYNC_LIMIT", "6")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Emitter.MaxListeners != 7 {
		t.Errorf("MaxListeners = %d, want 7", cfg.Emitter.MaxListeners)
	}
	if cfg.Emitter.AsyncLimit != 6 {
		t.Errorf("AsyncLimit = %d, want 6 from environment", cfg.Emitter.AsyncLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		code   ValidationErrorCode
	}{
		{"negative max listeners", func(c *Config) { c.Emitter.MaxListeners = -1 }, "emitter.max_listeners", ErrCodeOutOfRange},
		{"negative async limit", func(c *Config) { c.Emitter.AsyncLimit = -2 }, "emitter.async_limit", ErrCodeOutOfRange},
		{"cleanup without threshold", func(c *Config) {
			c.Emitter.AutoCleanup = true
			c.Emitter.AutoCleanupThreshold = 0
		}, "emitter.auto_cleanup_threshold", ErrCodeOutOfRange},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level", ErrCodeInvalidEnum},
		{"unknown kind", func(c *Config) {
			c.Listeners = []ListenerConfig{{Event: "a", Kind: "http"}}
		}, "listeners[0].kind", ErrCodeInvalidEnum},
		{"script without file", func(c *Config) {
			c.Listeners = []ListenerConfig{{Event: "a", Kind: KindScript}}
		}, "listeners[0].script", ErrCodeRequiredMissing},
		{"negative times", func(c *Config) {
			c.Listeners = []ListenerConfig{{Event: "a"}, {Event: "b", Times: -1}}
		}, "listeners[1].times", ErrCodeOutOfRange},
		{"negative ttl", func(c *Config) {
			c.Listeners = []ListenerConfig{{Event: "a", TTL: Duration(-time.Second)}}
		}, "listeners[0].ttl", ErrCodeOutOfRange},
		{"negative min args", func(c *Config) {
			c.Listeners = []ListenerConfig{{Event: "a", MinArgs: -1}}
		}, "listeners[0].min_args", ErrCodeOutOfRange},
		{"empty event segment", func(c *Config) {
			c.Listeners = []ListenerConfig{{Event: "order..paid"}}
		}, "listeners[0].event", ErrCodeInvalidFormat},
		{"trailing separator", func(c *Config) {
			c.Listeners = []ListenerConfig{{Event: "a"}, {Event: "user."}}
		}, "listeners[1].event", ErrCodeInvalidFormat},
		{"once with times", func(c *Config) {
			c.Listeners = []ListenerConfig{{Event: "a", Once: true, Times: 2}}
		}, "listeners[0].times", ErrCodeConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want a *ValidationError", err)
			}
			if verr.Path != tt.path {
				t.Errorf("Path = %q, want %q", verr.Path, tt.path)
			}
			if verr.Code != tt.code {
				t.Errorf("Code = %v, want %v", verr.Code, tt.code)
			}
			if !errors.Is(err, ErrValidationFailed) {
				t.Error("errors.Is(err, ErrValidationFailed) = false")
			}
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.Emitter.MaxListeners = -1
	cfg.Logging.Level = "loud"

	var errs ValidationErrors
	if !errors.As(cfg.Validate(), &errs) {
		t.Fatal("Validate() should return ValidationErrors")
	}
	if len(errs) != 2 {
		t.Errorf("len(errs) = %d, want 2: %v", len(errs), errs)
	}
}

func TestValidationErrorCode_String(t *testing.T) {
	tests := []struct {
		code ValidationErrorCode
		want string
	}{
		{ErrCodeOutOfRange, "out_of_range"},
		{ErrCodeInvalidEnum, "invalid_enum"},
		{ErrCodeRequiredMissing, "required_missing"},
		{ErrCodeConflict, "conflict"},
		{ErrCodeInvalidFormat, "invalid_format"},
		{ValidationErrorCode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestLogConfig(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "warn"
	cfg.Logging.Dir = "/var/log/fanout"
	cfg.Logging.AddSource = true

	lc := cfg.LogConfig()
	if lc.Level != slog.LevelWarn {
		t.Errorf("Level = %v, want WARN", lc.Level)
	}
	if lc.Dir != "/var/log/fanout" || !lc.AddSource {
		t.Errorf("LogConfig() = %+v", lc)
	}
}
