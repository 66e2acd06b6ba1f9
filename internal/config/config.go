// Package config loads the recording configuration consumed by the CLI and,
// indirectly, by the recording cache.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the recording session configuration.
type Config struct {
	// Session tags the recorded entry set so the transport layer can
	// correlate multiple recording sessions of one build. Opaque; empty
	// means the caller picks one.
	Session string `yaml:"session"`

	// MaterializeWhitelist lists path patterns for symlinks that must be
	// recorded as boundary entries even when their targets are unreachable.
	MaterializeWhitelist []string `yaml:"materialize_whitelist"`

	// InlineThresholdBytes embeds file contents into entries for files at or
	// below this size. Zero disables inlining.
	InlineThresholdBytes int `yaml:"inline_threshold_bytes"`

	// Parallelism bounds concurrent fan-out per directory while recording.
	Parallelism int `yaml:"parallelism"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		InlineThresholdBytes: 4096,
		Parallelism:          4,
	}
}

// Load reads the YAML config at path. A missing file yields the defaults; a
// present but malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.InlineThresholdBytes < 0 {
		return nil, fmt.Errorf("config %s: inline_threshold_bytes must be >= 0", path)
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = DefaultConfig().Parallelism
	}
	return cfg, nil
}
