// Package config handles configuration loading and validation for marker.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is the number of files processed per scan batch when
// batch_size is unset.
const DefaultBatchSize = 20

// Config holds the application configuration.
type Config struct {
	// Pattern is the regexp sub-expression matched as the annotation
	// marker. It is inserted verbatim into the extractor's expression.
	Pattern string `yaml:"pattern"`

	// Include and Exclude are doublestar globs applied to paths
	// relative to the workspace root.
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	// AuthorLookup enables per-annotation git blame attribution.
	AuthorLookup *bool `yaml:"author_lookup"` // nil = enabled

	// BatchSize is the number of files processed before yielding to
	// the UI between scan batches.
	BatchSize int `yaml:"batch_size"`

	Debug   bool      `yaml:"debug"`
	GitPath string    `yaml:"git_path"`
	Editor  string    `yaml:"editor"` // empty = $EDITOR
	TUI     TUIConfig `yaml:"tui"`

	Root string `yaml:"-"` // workspace root, set by caller
}

// TUIConfig holds presentation settings.
type TUIConfig struct {
	Theme string `yaml:"theme"`
}

// AuthorLookupEnabled reports whether blame attribution is on.
func (c *Config) AuthorLookupEnabled() bool {
	return c.AuthorLookup == nil || *c.AuthorLookup
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Pattern: "TODO|FIXME|HACK|NOTE|XXX|BUG",
		Include: []string{"**/*"},
		Exclude: []string{
			"**/node_modules/**",
			"**/vendor/**",
			"**/dist/**",
			"**/build/**",
			"**/*.min.js",
		},
		BatchSize: DefaultBatchSize,
		GitPath:   "git",
		TUI: TUIConfig{
			Theme: "tokyo-night",
		},
	}
}

// Load reads configuration from the given path and sets the workspace
// root. If configPath is empty or doesn't exist, returns defaults with
// the provided root.
func Load(configPath, root string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Root = root

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set root since Unmarshal may have cleared it
			cfg.Root = root
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Pattern == "" {
		c.Pattern = defaults.Pattern
	}
	if len(c.Include) == 0 {
		c.Include = defaults.Include
	}
	if c.BatchSize == 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.GitPath == "" {
		c.GitPath = defaults.GitPath
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
}
