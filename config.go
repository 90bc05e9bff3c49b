package main

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"
)

// Config holds the optional settings read from config.json.
type Config struct {
	Adapter    string `json:"adapter,omitempty"`
	Capability string `json:"capability,omitempty"`
	AgentPath  string `json:"agent_path,omitempty"`
}

func configPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "bluespeak", "config.json")
}

// loadConfig reads the config file. A missing file is not an error.
func loadConfig() (Config, error) {
	var cfg Config
	data, err := os.ReadFile(configPath())
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	return cfg, nil
}

// merge overlays non-empty flag values on cfg and validates the result.
func (cfg Config) merge(flags Config) (Config, error) {
	if flags.Adapter != "" {
		cfg.Adapter = flags.Adapter
	}
	if flags.Capability != "" {
		cfg.Capability = flags.Capability
	}
	if flags.AgentPath != "" {
		cfg.AgentPath = flags.AgentPath
	}
	if cfg.Capability != "" && !validCapability(cfg.Capability) {
		return cfg, errors.Errorf("unknown agent capability %q", cfg.Capability)
	}
	if cfg.AgentPath != "" && !dbus.ObjectPath(cfg.AgentPath).IsValid() {
		return cfg, errors.Errorf("invalid agent path %q", cfg.AgentPath)
	}
	return cfg, nil
}
