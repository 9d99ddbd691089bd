// Package config loads qube settings from the environment.
//
// Every setting has a QUBE_ variable and a default. CLI flags override the
// loaded values.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/qube/internal/driver"
	"github.com/roach88/qube/internal/ingest"
)

// Config holds the process-wide settings.
type Config struct {
	// Seed is the initial anchor of a driven kernel.
	Seed string `env:"QUBE_SEED"`

	// Journal is the SQLite path of the session journal. Empty disables it.
	Journal string `env:"QUBE_JOURNAL"`

	// LogLevel accepts debug, info, warn or error.
	LogLevel slog.Level `env:"QUBE_LOG_LEVEL" envDefault:"info"`

	// MaxLineBytes bounds a single ingestion line.
	MaxLineBytes int `env:"QUBE_MAX_LINE_BYTES"`

	// SynthesizeEvery emits structures after every N accepted units. 0 disables it.
	SynthesizeEvery int `env:"QUBE_SYNTHESIZE_EVERY" envDefault:"0"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	cfg := Config{
		Seed:         driver.DefaultSeed,
		MaxLineBytes: ingest.DefaultMaxLineBytes,
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if c.Seed == "" {
		return fmt.Errorf("config: QUBE_SEED must not be empty")
	}
	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("config: QUBE_MAX_LINE_BYTES must be positive, got %d", c.MaxLineBytes)
	}
	if c.SynthesizeEvery < 0 {
		return fmt.Errorf("config: QUBE_SYNTHESIZE_EVERY must not be negative, got %d", c.SynthesizeEvery)
	}
	return nil
}
