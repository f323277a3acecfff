package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "key-mapper"

type Config struct {
	LogLevel      string       `json:"log_level"`     // zerolog level name
	MappingsFile  string       `json:"mappings_file"` // empty means MappingsPath()
	StartOnLaunch bool         `json:"start_on_launch"`
	Launch        LaunchConfig `json:"launch"`
}

type LaunchConfig struct {
	// Suffixes spawned as processes; other targets are opened with the OS handler.
	ExecutableSuffixes []string `json:"executable_suffixes"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		StartOnLaunch: false,
		Launch: LaunchConfig{
			ExecutableSuffixes: []string{".exe"},
		},
	}
}

// Load reads the config from disk or returns defaults
func Load() (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(configPath()); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path := configPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// MappingsPath returns the mappings file to use, honouring MappingsFile.
func (c *Config) MappingsPath() string {
	if c.MappingsFile != "" {
		return c.MappingsFile
	}
	return MappingsPath()
}

// Path returns the platform-specific config file path
func Path() string {
	return configPath()
}

func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, appName, "config.json")
}

// MappingsPath returns the platform-specific default mappings file path
func MappingsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, appName, "key_mappings.json")
}
