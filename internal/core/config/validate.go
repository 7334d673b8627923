package config

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/colonyops/marker/internal/core/extract"
	"github.com/colonyops/marker/internal/core/styles"
)

// Validate checks that the configuration is valid. The marker pattern
// is compiled here so a malformed pattern fails load once with a clear
// message instead of failing silently on every file during a scan.
func (c *Config) Validate() error {
	if _, err := extract.New(c.Pattern); err != nil {
		return fmt.Errorf("pattern: %w", err)
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}

	for _, pattern := range c.Include {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("include: invalid glob pattern %q", pattern)
		}
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("exclude: invalid glob pattern %q", pattern)
		}
	}

	if _, ok := styles.GetPalette(c.TUI.Theme); !ok {
		return fmt.Errorf("tui.theme: unknown theme %q (available: %v)", c.TUI.Theme, styles.ThemeNames())
	}

	return nil
}
