// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Typed configuration with file/env loading and hot-reload propagation.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-meta/api"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HIOLOAD_META_"

// Config holds the tunables of the owner registry and its janitor.
type Config struct {
	// Shards is the number of registry shards, rounded up to a power of two.
	Shards int `yaml:"shards" env:"SHARDS"`
	// SweepInterval arms the janitor. Zero leaves expiry fully lazy.
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
	// ClearOnDestroy empties an owner's map on teardown instead of removing
	// only keys flagged RemoveOnNonExists.
	ClearOnDestroy bool `yaml:"clear_on_destroy" env:"CLEAR_ON_DESTROY"`
	// EnableMetrics turns on counter collection.
	EnableMetrics bool `yaml:"enable_metrics" env:"ENABLE_METRICS"`
	// EnableDebug registers debug probes.
	EnableDebug bool `yaml:"enable_debug" env:"ENABLE_DEBUG"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Shards:        16,
		SweepInterval: 0,
		EnableMetrics: true,
		EnableDebug:   true,
		LogLevel:      "info",
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then HIOLOAD_META_* environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate rejects values the registry cannot run with.
func (c *Config) Validate() error {
	if c.Shards <= 0 {
		return api.Errorf(api.ErrCodeInvalidArgument, "config: shards must be positive, got %d", c.Shards).
			WithContext("field", "shards")
	}
	if c.SweepInterval < 0 {
		return api.Errorf(api.ErrCodeInvalidArgument, "config: sweep_interval must not be negative, got %s", c.SweepInterval).
			WithContext("field", "sweep_interval")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a config log level onto slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, api.Errorf(api.ErrCodeInvalidArgument, "config: unknown log level %q", s).
		WithContext("field", "log_level")
}

// AsMap renders the config with its YAML field names.
func (c *Config) AsMap() map[string]any {
	return map[string]any{
		"shards":           c.Shards,
		"sweep_interval":   c.SweepInterval.String(),
		"clear_on_destroy": c.ClearOnDestroy,
		"enable_metrics":   c.EnableMetrics,
		"enable_debug":     c.EnableDebug,
		"log_level":        c.LogLevel,
	}
}

// ConfigStore holds the live configuration and notifies reload listeners.
type ConfigStore struct {
	mu         sync.RWMutex
	config     Config
	listeners  []func(Config)
	validators []func(prev, next Config) error
}

// NewConfigStore initializes a store with cfg, or defaults when nil.
func NewConfigStore(cfg *Config) *ConfigStore {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &ConfigStore{config: *cfg}
}

// Current returns a copy of the live config.
func (cs *ConfigStore) Current() Config {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.config
}

// GetSnapshot returns the live config keyed by YAML field names.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cfg := cs.Current()
	return cfg.AsMap()
}

// SetConfig merges values keyed by YAML field names into the live config,
// validates the result and dispatches reload listeners. Unknown keys and
// invalid values leave the config untouched.
func (cs *ConfigStore) SetConfig(values map[string]any) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode config update: %w", err)
	}
	return cs.Update(func(cfg *Config) error {
		return decodeYAML(data, cfg)
	})
}

// Update applies fn to a copy of the live config and commits it if valid.
func (cs *ConfigStore) Update(fn func(*Config) error) error {
	cs.mu.Lock()
	next := cs.config
	if err := fn(&next); err != nil {
		cs.mu.Unlock()
		return err
	}
	if err := next.Validate(); err != nil {
		cs.mu.Unlock()
		return err
	}
	for _, check := range cs.validators {
		if err := check(cs.config, next); err != nil {
			cs.mu.Unlock()
			return err
		}
	}
	cs.config = next
	listeners := append([]func(Config){}, cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

// OnReload registers a listener called synchronously after every update.
func (cs *ConfigStore) OnReload(fn func(Config)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// OnValidate registers a check run on every update before it commits. A
// non-nil error rejects the update. Checks run under the store lock and
// must not call back into it.
func (cs *ConfigStore) OnValidate(fn func(prev, next Config) error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.validators = append(cs.validators, fn)
}
