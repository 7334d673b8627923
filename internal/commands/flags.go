package commands

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/marker/internal/core/config"
	"github.com/colonyops/marker/internal/scanner"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	Root       string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Service is the index service for the workspace
	Service *scanner.Service
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "marker", "config.yaml")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/marker/marker.log
// On Linux: $XDG_STATE_HOME/marker/marker.log (defaults to ~/.local/state/marker/marker.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "marker", "marker.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "marker", "marker.log")
	}

	return filepath.Join(home, ".local", "state", "marker", "marker.log")
}
