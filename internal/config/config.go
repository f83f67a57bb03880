// Package config loads the CLI and client configuration: embedded defaults,
// an optional YAML file, then environment overrides.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"studydex/internal/clock"
	"studydex/internal/engine"
	"studydex/internal/model"
	"studydex/internal/storage"
)

//go:embed defaults.yaml
var defaultsYAML []byte

const (
	EnvStore    = "STUDYDEX_STORE"
	EnvDBPath   = "STUDYDEX_DB_PATH"
	EnvTimezone = "STUDYDEX_TIMEZONE"
	EnvLogLevel = "STUDYDEX_LOG_LEVEL"
)

type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Clock    ClockConfig    `yaml:"clock"`
	Log      LogConfig      `yaml:"log"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

type StoreConfig struct {
	Kind string `yaml:"kind"`
	Path string `yaml:"path"`
}

type ClockConfig struct {
	Timezone string `yaml:"timezone"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultsConfig seeds the settings of a freshly created state.
type DefaultsConfig struct {
	DailyTarget float64 `yaml:"daily_target"`
	ThemeColor  string  `yaml:"theme_color"`
	Scale       float64 `yaml:"scale"`
	DarkMode    bool    `yaml:"dark_mode"`
}

// Load merges the YAML file at path over the embedded defaults and applies
// environment overrides. An empty path uses the defaults alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// LoadEnvFile exports the variables of a dotenv file into the process
// environment without overriding ones already set. A missing file is only an
// error when required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays STUDYDEX_* values found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvStore); ok && v != "" {
		c.Store.Kind = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := lookup(EnvTimezone); ok && v != "" {
		c.Clock.Timezone = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

func (c *Config) Validate() error {
	switch c.Store.Kind {
	case "", storage.KindMemory, storage.KindFile, storage.KindSQLite:
	default:
		return fmt.Errorf("store.kind: unsupported backend %q", c.Store.Kind)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("clock.timezone: %w", err)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if err := engine.ValidateSettings(c.Settings()); err != nil {
		return fmt.Errorf("defaults: %w", err)
	}
	return nil
}

// StoreKind resolves an empty kind to the build default.
func (c *Config) StoreKind() string {
	if c.Store.Kind == "" {
		return storage.DefaultStoreKind()
	}
	return c.Store.Kind
}

func (c *Config) StorePath() string {
	if c.Store.Path == "" {
		return storage.DefaultPath(c.StoreKind())
	}
	return c.Store.Path
}

func (c *Config) Location() (*time.Location, error) {
	return clock.LoadLocation(c.Clock.Timezone)
}

func (c *Config) LogLevel() slog.Level {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelWarn
	}
	return level
}

func (c *Config) Settings() model.Settings {
	return model.Settings{
		DailyTarget: c.Defaults.DailyTarget,
		ThemeColor:  c.Defaults.ThemeColor,
		Scale:       c.Defaults.Scale,
		DarkMode:    c.Defaults.DarkMode,
	}
}

// WriteYAML saves the resolved configuration, e.g. as a starting point for
// hand edits.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// ParseLevel accepts debug, info, warn and error; empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", s)
	}
}
