// Package config provides configuration management for profilegen.
package config

import (
	"fmt"

	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/generate"
)

// Config holds the generation settings and the optional run store.
type Config struct {
	Generation engine.Settings
	Store      StoreConfig
}

// StoreConfig locates the SQLite run store. An empty Path disables
// persistence.
type StoreConfig struct {
	Path string
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{Generation: engine.DefaultSettings()}
}

// EngineOptions returns the engine options that apply c.
func (c *Config) EngineOptions() []engine.EngineOption {
	return []engine.EngineOption{engine.WithSettings(c.Generation)}
}

// validateConfig checks strategy names and numeric bounds.
func validateConfig(cfg *Config) error {
	g := cfg.Generation
	if _, err := engine.ParseWalkerKind(string(g.Walker)); err != nil {
		return fmt.Errorf("generation.walker: %w", err)
	}
	if _, err := engine.ParseFieldSelection(string(g.FieldSelection)); err != nil {
		return fmt.Errorf("generation.field_selection: %w", err)
	}
	if _, err := generate.ParseMode(string(g.Mode)); err != nil {
		return fmt.Errorf("generation.mode: %w", err)
	}
	if _, err := engine.ParseCombination(string(g.Combination)); err != nil {
		return fmt.Errorf("generation.combination: %w", err)
	}
	if g.MaxRows < 0 {
		return fmt.Errorf("generation.max_rows must not be negative, got %d", g.MaxRows)
	}
	if g.MaxStringLength < 0 {
		return fmt.Errorf("generation.max_string_length must not be negative, got %d", g.MaxStringLength)
	}
	if g.Parallelism <= 0 {
		return fmt.Errorf("generation.parallelism must be positive, got %d", g.Parallelism)
	}
	return nil
}
