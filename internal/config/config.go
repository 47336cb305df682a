// Package config provides configuration loading for logmask.
//
// Configuration is layered: defaults, then an optional YAML file, then
// LOGMASK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the complete logmask configuration.
type Config struct {
	Masking MaskingConfig `koanf:"masking"`
	Logging LoggingConfig `koanf:"logging"`
	Metrics MetricsConfig `koanf:"metrics"`
}

// MaskingConfig holds rule loading configuration.
type MaskingConfig struct {
	Enabled            bool     `koanf:"enabled"`
	RulesFile          string   `koanf:"rules_file"`
	MatchTimeout       Duration `koanf:"match_timeout"` // 0 disables the timeout
	DefaultReplacement string   `koanf:"default_replacement"`
}

// LoggingConfig holds diagnostic logging configuration.
type LoggingConfig struct {
	Level        string `koanf:"level"`
	Format       string `koanf:"format"`
	Output       string `koanf:"output"`
	MaskMessages bool   `koanf:"mask_messages"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// DefaultRulesFile returns ~/.config/logmask/log-masking.properties, or a
// relative log-masking.properties when the home directory is unknown.
func DefaultRulesFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "log-masking.properties"
	}
	return filepath.Join(home, ".config", "logmask", "log-masking.properties")
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	return &Config{
		Masking: MaskingConfig{
			Enabled:            true,
			RulesFile:          DefaultRulesFile(),
			MatchTimeout:       Duration(100 * time.Millisecond),
			DefaultReplacement: "*",
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "json",
			Output:       "stderr",
			MaskMessages: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Masking is enabled without a rules file
//   - Logging format or output is unknown
func (c *Config) Validate() error {
	if c.Masking.Enabled && c.Masking.RulesFile == "" {
		return errors.New("masking.rules_file is required when masking is enabled")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q (must be json or console)", c.Logging.Format)
	}

	switch c.Logging.Output {
	case "stdout", "stderr":
	default:
		return fmt.Errorf("invalid logging output: %q (must be stdout or stderr)", c.Logging.Output)
	}

	return nil
}
