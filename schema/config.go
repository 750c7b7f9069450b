package schema

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// ServiceConfig defines defaults and limits for the session core.
type ServiceConfig struct {
	StateDir         string
	UntitledName     string
	ReadConcurrency  int
	AutosaveInterval time.Duration
	TabNameMax       int
}

const (
	// DefaultUntitledName names tabs without a backing file or custom name.
	DefaultUntitledName = "Untitled"
	// DefaultReadConcurrency bounds concurrent reads when opening several files.
	DefaultReadConcurrency = 4
	// DefaultAutosaveInterval is the periodic snapshot interval.
	DefaultAutosaveInterval = 30 * time.Second
	// DefaultTabNameMax caps custom tab names in runes.
	DefaultTabNameMax = 255
)

// NormalizeServiceConfig applies defaults and validates the config.
func NormalizeServiceConfig(cfg ServiceConfig) (ServiceConfig, error) {
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ServiceConfig{}, err
		}
		cfg.StateDir = filepath.Join(home, ".quicktext", "state")
	}
	if cfg.UntitledName == "" {
		cfg.UntitledName = DefaultUntitledName
	}
	if cfg.ReadConcurrency <= 0 {
		cfg.ReadConcurrency = DefaultReadConcurrency
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = DefaultAutosaveInterval
	}
	if cfg.TabNameMax <= 0 {
		cfg.TabNameMax = DefaultTabNameMax
	}
	if cfg.AutosaveInterval < time.Second {
		return ServiceConfig{}, errors.New("autosave interval must be at least one second")
	}
	return cfg, nil
}
