package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/fanout/internal/config/loader"
	"github.com/dshills/fanout/internal/logging"
)

// EnvPrefix is the prefix of environment variables that override file settings.
const EnvPrefix = "FANOUT_"

// Listener kinds.
const (
	KindPrint  = "print"
	KindScript = "script"
)

// Config is the complete fanout configuration.
type Config struct {
	Emitter   EmitterConfig    `yaml:"emitter"`
	Logging   LoggingConfig    `yaml:"logging"`
	Listeners []ListenerConfig `yaml:"listeners"`

	// Source is the file the configuration was read from, if any.
	Source string `yaml:"-"`
}

// EmitterConfig maps onto the emitter's construction options.
type EmitterConfig struct {
	AutoCleanup          bool     `yaml:"auto_cleanup"`
	AutoCleanupThreshold Duration `yaml:"auto_cleanup_threshold"`
	MaxListeners         int      `yaml:"max_listeners"`
	// AsyncLimit bounds concurrent listener calls in EmitAsync; 0 is unbounded.
	AsyncLimit int `yaml:"async_limit"`
}

// LoggingConfig is the file form of logging.Config.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	AddSource  bool   `yaml:"add_source"`
}

// ListenerConfig declares one listener registered at startup.
type ListenerConfig struct {
	// Event is an event name or wildcard pattern. "" registers a catch-all.
	Event string `yaml:"event"`
	// Kind is "print" or "script".
	Kind string `yaml:"kind"`
	// Script is the Lua file for script listeners, relative to the config file.
	Script string `yaml:"script"`
	// Function is the global Lua function to call. Defaults to "on_event".
	Function string   `yaml:"function"`
	Priority int      `yaml:"priority"`
	Times    int      `yaml:"times"`
	TTL      Duration `yaml:"ttl"`
	Once     bool     `yaml:"once"`
	Prepend  bool     `yaml:"prepend"`
	// MinArgs rejects emissions with fewer arguments.
	MinArgs int `yaml:"min_args"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	lc := logging.DefaultConfig()
	return &Config{
		Emitter: EmitterConfig{
			AutoCleanupThreshold: Duration(5 * time.Minute),
			MaxListeners:         10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAgeDays: lc.MaxAgeDays,
			Compress:   lc.Compress,
		},
	}
}

// Load reads the file at path (TOML or YAML by extension), applies FANOUT_
// environment overrides, and validates the result. An empty path yields the
// defaults plus environment overrides. A missing file is an error.
func Load(path string) (*Config, error) {
	return LoadFS(loader.DefaultFS(), path, loader.NewEnvLoader(EnvPrefix))
}

// LoadFS is Load with an explicit file system and environment loader.
// A nil env skips environment overrides.
func LoadFS(fsys loader.FileSystem, path string, env loader.Loader) (*Config, error) {
	var merged map[string]any

	if path != "" {
		fl, err := loader.ForPath(fsys, path)
		if err != nil {
			return nil, err
		}
		data, err := fl.LoadFrom(path)
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		merged = data
	}

	if env != nil {
		overrides, err := env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, overrides)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	cfg.Source = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode converts a merged settings map into a Config on top of the defaults.
// Both file formats go through the YAML decoder so that Duration accepts the
// same spellings everywhere.
func decode(data map[string]any) (*Config, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}

	raw, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	return cfg, nil
}

// LogConfig converts the logging section for logging.Setup.
func (c *Config) LogConfig() *logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(c.Logging.Level)
	lc.Dir = c.Logging.Dir
	lc.MaxSizeMB = c.Logging.MaxSizeMB
	lc.MaxBackups = c.Logging.MaxBackups
	lc.MaxAgeDays = c.Logging.MaxAgeDays
	lc.Compress = c.Logging.Compress
	lc.AddSource = c.Logging.AddSource
	return lc
}
