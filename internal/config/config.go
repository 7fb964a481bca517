// Package config loads the minisql YAML configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	REPL    REPLConfig    `yaml:"repl"`
}

type StorageConfig struct {
	// BaseDir is the directory holding one subdirectory per database.
	BaseDir string `yaml:"base_dir"`
}

type OutputConfig struct {
	// Colors is "auto" (color when stdout is a terminal), "always" or
	// "never".
	Colors string `yaml:"colors"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type REPLConfig struct {
	Prompt string `yaml:"prompt"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{BaseDir: "databases"},
		Output:  OutputConfig{Colors: "auto"},
		Logging: LoggingConfig{Level: "warn"},
		REPL:    REPLConfig{Prompt: "minisql"},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Storage.BaseDir == "" {
		cfg.Storage.BaseDir = "databases"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Output.Colors == "" {
		cfg.Output.Colors = "auto"
	}
	if cfg.REPL.Prompt == "" {
		cfg.REPL.Prompt = "minisql"
	}
	return cfg, nil
}
