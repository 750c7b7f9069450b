package appconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("host.mode", cfg.Host.Mode)
	v.SetDefault("host.sandbox_root", cfg.Host.SandboxRoot)
	v.SetDefault("host.max_read_bytes", cfg.Host.MaxReadBytes)
	v.SetDefault("host.text_extensions", cfg.Host.TextExtensions)
	v.SetDefault("autosave.interval_seconds", cfg.Autosave.IntervalSeconds)
	v.SetDefault("registry.read_concurrency", cfg.Registry.ReadConcurrency)
	v.SetDefault("registry.untitled_name", cfg.Registry.UntitledName)
	v.SetDefault("registry.tab_name_max", cfg.Registry.TabNameMax)

	if err := v.ReadInConfig(); err != nil {
		if !configMissing(err) {
			return Config{}, err
		}
	} else {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// configMissing reports whether err means the config file is absent.
func configMissing(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

func validate(cfg Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Host.Mode)) {
	case "auto", "native", "sandbox":
	default:
		return fmt.Errorf("unsupported host.mode %q", cfg.Host.Mode)
	}
	if cfg.Host.MaxReadBytes <= 0 {
		return fmt.Errorf("host.max_read_bytes must be positive")
	}
	if cfg.Autosave.IntervalSeconds < 1 {
		return fmt.Errorf("autosave.interval_seconds must be at least 1")
	}
	if cfg.Registry.ReadConcurrency < 1 {
		return fmt.Errorf("registry.read_concurrency must be at least 1")
	}
	if strings.TrimSpace(cfg.StateDir) == "" {
		return fmt.Errorf("state_dir is required")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Host.SandboxRoot = expandEnv(cfg.Host.SandboxRoot)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
