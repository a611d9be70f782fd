// Package config loads the process-wide error-reporting configuration:
// which language diagnostics render in, whether an offending
// SQL fragment is included in error text, and the default dialect/base
// directory the CLI falls back to when flags are absent.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML-loadable process configuration.
type Config struct {
	Language           string `yaml:"language"`
	IncludeSQLFragment bool   `yaml:"include_sql_fragment"`
	DefaultDialect     string `yaml:"default_dialect"`
	BaseDir            string `yaml:"base_dir"`
}

// DefaultConfig returns the configuration used when no file is found or the
// -config flag is absent: English messages, no fragment echo, no fixed
// dialect or base directory.
func DefaultConfig() *Config {
	return &Config{
		Language:           "en",
		IncludeSQLFragment: false,
	}
}

// LoadConfig reads and parses a YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}
