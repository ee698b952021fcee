// Package config loads server configuration from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/atc-agent/atc/internal/settings"
)

const (
	defaultListen = "127.0.0.1:7171"
	dataDirName   = "air_traffic_control"
	dbFileName    = "atc.db"
)

// Config is the resolved server configuration.
type Config struct {
	Listen   string                  `yaml:"listen"`
	DBPath   string                  `yaml:"db_path"`
	Defaults settings.GlobalDefaults `yaml:"defaults"`
}

// Load builds the configuration: file values (when path is non-empty)
// first, then ATC_LISTEN and ATC_DB_PATH from the environment, then
// built-in defaults for whatever is still unset.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if v := os.Getenv("ATC_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("ATC_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.DBPath == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = p
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return cfg, nil
}

// DefaultDBPath is $XDG_DATA_HOME/air_traffic_control/atc.db, falling
// back to $HOME/.local/share.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, dataDirName, dbFileName), nil
}
