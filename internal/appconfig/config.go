package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/quicktext/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int            `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string         `mapstructure:"state_dir" yaml:"state_dir"`
	Host          HostConfig     `mapstructure:"host" yaml:"host"`
	Autosave      AutosaveConfig `mapstructure:"autosave" yaml:"autosave"`
	Registry      RegistryConfig `mapstructure:"registry" yaml:"registry"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// HostConfig selects the file-access model.
type HostConfig struct {
	Mode           string   `mapstructure:"mode" yaml:"mode"`
	SandboxRoot    string   `mapstructure:"sandbox_root" yaml:"sandbox_root"`
	MaxReadBytes   int64    `mapstructure:"max_read_bytes" yaml:"max_read_bytes"`
	TextExtensions []string `mapstructure:"text_extensions" yaml:"text_extensions"`
}

// AutosaveConfig controls periodic session snapshots.
type AutosaveConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds" yaml:"interval_seconds"`
}

// RegistryConfig tunes the session registry.
type RegistryConfig struct {
	ReadConcurrency int    `mapstructure:"read_concurrency" yaml:"read_concurrency"`
	UntitledName    string `mapstructure:"untitled_name" yaml:"untitled_name"`
	TabNameMax      int    `mapstructure:"tab_name_max" yaml:"tab_name_max"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".quicktext", "state"),
		Host: HostConfig{
			Mode:           "auto",
			SandboxRoot:    filepath.Join(home, ".quicktext", "sandbox"),
			MaxReadBytes:   16 << 20,
			TextExtensions: []string{".txt", ".md", ".log", ".csv", ".ini", ".conf"},
		},
		Autosave: AutosaveConfig{
			IntervalSeconds: int(schema.DefaultAutosaveInterval / time.Second),
		},
		Registry: RegistryConfig{
			ReadConcurrency: schema.DefaultReadConcurrency,
			UntitledName:    schema.DefaultUntitledName,
			TabNameMax:      schema.DefaultTabNameMax,
		},
	}, nil
}

// ServiceConfig maps the file config onto the core service config.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.ServiceConfig{
		StateDir:         c.StateDir,
		UntitledName:     c.Registry.UntitledName,
		ReadConcurrency:  c.Registry.ReadConcurrency,
		AutosaveInterval: time.Duration(c.Autosave.IntervalSeconds) * time.Second,
		TabNameMax:       c.Registry.TabNameMax,
	}
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".quicktext", "config.yaml"), nil
}
