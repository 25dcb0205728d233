// Package config loads the workbench's application-level configuration:
// where workspaces live on disk, which storage backend to use, and logging
// verbosity. Load/LoadWithEnv are split so tests never touch the real
// environment or home directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Backend selects the keyed-storage implementation (internal/kv).
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

type Config struct {
	// WorkspacesDir is the directory whose immediate children are
	// candidate workspaces.
	WorkspacesDir string `yaml:"workspaces_dir"`
	// ProfilesPath is the path to the profiles.json registry.
	ProfilesPath string `yaml:"profiles_path"`
	Storage      StorageConfig `yaml:"storage"`
	Log          LogConfig     `yaml:"log"`
}

type StorageConfig struct {
	Backend Backend `yaml:"backend"`
	Path    string  `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the configuration used when no file or env override
// is present.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{Backend: BackendSQLite},
		Log:     LogConfig{Level: "info"},
	}
}

// Load loads configuration using the real environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment lookup
// function, so tests can supply isolated environment values instead of
// mutating the process environment.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	home := getenv("HOME")
	if cfg.WorkspacesDir == "" {
		xdgData := getenv("XDG_DATA_HOME")
		if xdgData != "" {
			cfg.WorkspacesDir = filepath.Join(xdgData, "sapic", "workspaces")
		} else {
			cfg.WorkspacesDir = filepath.Join(home, ".local", "share", "sapic", "workspaces")
		}
	}
	if cfg.ProfilesPath == "" {
		xdgConfig := getenv("XDG_CONFIG_HOME")
		if xdgConfig != "" {
			cfg.ProfilesPath = filepath.Join(xdgConfig, "sapic", "profiles.json")
		} else {
			cfg.ProfilesPath = filepath.Join(home, ".config", "sapic", "profiles.json")
		}
	}
	if cfg.Storage.Path == "" {
		xdgData := getenv("XDG_DATA_HOME")
		if xdgData != "" {
			cfg.Storage.Path = filepath.Join(xdgData, "sapic", "state.sqlite3")
		} else {
			cfg.Storage.Path = filepath.Join(home, ".local", "share", "sapic", "state.sqlite3")
		}
	}

	if level := getenv("SAPIC_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if backend := getenv("SAPIC_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = Backend(backend)
	}

	return cfg, nil
}

func getConfigPath() string {
	return getConfigPathWithEnv(os.Getenv)
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sapic", "config.yaml")
	}
	home := getenv("HOME")
	return filepath.Join(home, ".config", "sapic", "config.yaml")
}

// ConfigPath returns the on-disk location of the app config file, using the
// real environment.
func ConfigPath() string { return getConfigPath() }
