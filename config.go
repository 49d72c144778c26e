package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"iwdctl/iwd"
)

// Config holds the command line settings. Flags override the file, the file
// overrides the defaults.
type Config struct {
	BusAddress     string        `yaml:"bus_address"`     // empty: system bus
	Service        string        `yaml:"service"`         // bus name of the daemon
	AgentNamespace string        `yaml:"agent_namespace"` // prefix of exported agent paths
	AgentTimeout   time.Duration `yaml:"agent_timeout"`   // per credential request
	LogLevel       string        `yaml:"log_level"`
	SignalLevels   []int16       `yaml:"signal_levels"` // dBm thresholds for monitor-signal
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Service:        iwd.Service,
		AgentNamespace: iwd.DefaultNamespace,
		AgentTimeout:   iwd.DefaultAgentTimeout,
		LogLevel:       "info",
		SignalLevels:   []int16{-60, -70, -80},
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/iwdctl/config.yaml.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "iwdctl", "config.yaml")
}

// LoadConfig reads path over the defaults. A missing file is not an error unless
// the path was given explicitly.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the daemon or logrus would reject later.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.AgentTimeout < 0 {
		return fmt.Errorf("agent_timeout must not be negative, got %s", c.AgentTimeout)
	}
	if c.AgentNamespace == "" || c.AgentNamespace[0] != '/' {
		return fmt.Errorf("agent_namespace must be an absolute object path, got %q", c.AgentNamespace)
	}
	return nil
}

// sessionOptions turns the config into iwd options.
func (c *Config) sessionOptions(log logrus.FieldLogger) []iwd.Option {
	return []iwd.Option{
		iwd.WithLogger(log),
		iwd.WithService(c.Service),
		iwd.WithNamespace(c.AgentNamespace),
		iwd.WithAgentTimeout(c.AgentTimeout),
	}
}
