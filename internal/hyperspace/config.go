package hyperspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the installer's own configuration.
type Config struct {
	Home           string `yaml:"home"`
	ResourcesDir   string `yaml:"resources_dir"`
	LogLevel       string `yaml:"log_level"`
	ManifestEditor string `yaml:"manifest_editor"`
	Debug          bool   `yaml:"debug"`
}

// DefaultConfigPath is ~/.config/hyperspace/config.yaml.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "hyperspace", "config.yaml")
}

// loadConfig reads path when it exists, merges HYPERSPACE_* overrides and
// fills in defaults.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	mergeEnvOverrides(cfg)

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge HYPERSPACE_* env overrides
func mergeEnvOverrides(cfg *Config) {
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, "HYPERSPACE_") {
			continue
		}
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		switch parts[0] {
		case "HYPERSPACE_HOME":
			cfg.Home = parts[1]
		case "HYPERSPACE_RESOURCES":
			cfg.ResourcesDir = parts[1]
		case "HYPERSPACE_LOG_LEVEL":
			cfg.LogLevel = parts[1]
		case "HYPERSPACE_MANIFEST_EDITOR":
			cfg.ManifestEditor = parts[1]
		case "HYPERSPACE_DEBUG":
			cfg.Debug = parts[1] == "1"
		}
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Home == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfg.Home = home
	}
	if cfg.ResourcesDir == "" {
		cfg.ResourcesDir = defaultResourcesDir()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ManifestEditor == "" {
		cfg.ManifestEditor = "builtin"
	}
	return nil
}

// defaultResourcesDir is the Resources folder of the .app the installer
// binary ships in (Contents/MacOS/hyperspace -> Contents/Resources).
func defaultResourcesDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "Resources"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "..", "Resources")
}
