// Package config holds the compositor tuning knobs, stored as TOML.
package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the full knob set. Zero values are not meaningful defaults;
// start from Default.
type Config struct {
	// MaxQueuedCommits bounds the per-surface commit queue. When a new
	// commit would exceed it the oldest queued commit applies without
	// waiting for its fence. Zero disables the bound.
	MaxQueuedCommits int

	// AllowImplicitFallback lets commits without an explicit acquire
	// point wait on the buffer's implicit fence. When false such commits
	// apply immediately.
	AllowImplicitFallback bool

	// CursorMirrorPixels keeps a CPU-side pixel mirror for cursor
	// surfaces.
	CursorMirrorPixels bool

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		MaxQueuedCommits:      8,
		AllowImplicitFallback: true,
		CursorMirrorPixels:    true,
		LogLevel:              "info",
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.MaxQueuedCommits < 0 {
		return fmt.Errorf("config: MaxQueuedCommits must not be negative, got %d", c.MaxQueuedCommits)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("config: unknown LogLevel %q", c.LogLevel)
	}
	return nil
}

// Level returns LogLevel as a slog level. Unknown values fall back to
// Info; Validate catches them earlier.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads the configuration at path. Fields absent from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	c := Default()
	if _, err := toml.DecodeFile(path, c); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Save writes the configuration to path, creating or truncating it.
func Save(path string, c *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
