// Package config loads the proxy configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the two settings the proxy needs.
type Config struct {
	Engine  string `yaml:"engine"`
	LogFile string `yaml:"logfile"`
}

func Load(filename string) (Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("'%s': %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("'%s': %w", filename, err)
	}

	if cfg.Engine == "" {
		return Config{}, fmt.Errorf("'%s': missing required field 'engine'", filename)
	}
	if cfg.LogFile == "" {
		return Config{}, fmt.Errorf("'%s': missing required field 'logfile'", filename)
	}

	return cfg, nil
}
