// Package main implements the logmask CLI, which masks secrets in log text
// using rules from a properties file.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fyrsmithlabs/logmask/internal/config"
	"github.com/fyrsmithlabs/logmask/internal/logging"
	"github.com/fyrsmithlabs/logmask/internal/masking"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// configPath is the YAML config file (default ~/.config/logmask/config.yaml)
	configPath string
	// rulesPath overrides masking.rules_file
	rulesPath string
	// envFile is an optional .env file loaded before configuration
	envFile string
	// logLevel overrides logging.level
	logLevel string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "logmask",
	Short: "Mask secrets in log messages",
	Long: `logmask redacts credentials, tokens and other sensitive values from log
messages using regular-expression rules read from a properties file.

Each rule R is defined by up to three keys:
  R           regex matching the span that may contain a secret
  R.REPLACE   regex applied inside that span to find the secret
  R.REPLACER  replacement text (default "*"), may use $1 or ${name}

Rules are applied in file order; each rule sees the output of the previous one.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default ~/.config/logmask/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "masking rules properties file (overrides masking.rules_file)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this .env file first")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "diagnostic log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(maskCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(statsCmd)
}

// app is the wiring shared by every command: one store, one engine.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	store    *masking.Store
	engine   *masking.Engine
	registry *prometheus.Registry
	metrics  *masking.Metrics
}

// newApp loads configuration and builds the engine.
func newApp() (*app, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}
	if rulesPath != "" {
		cfg.Masking.Enabled = true
		cfg.Masking.RulesFile = rulesPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logCfg, err := loggingConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}

	// Masking diagnostics carry rule IDs and paths only, so they are logged
	// unmasked; this also keeps a failing rule from re-entering the engine.
	diag, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
	}
	if cfg.Metrics.Enabled {
		a.metrics = masking.NewMetrics(a.registry)
	}

	opts := []masking.Option{
		masking.WithLogger(diag.Named("masking").Underlying()),
		masking.WithMetrics(a.metrics),
	}
	if cfg.Masking.Enabled {
		a.store = masking.NewStore(cfg.Masking.RulesFile, maskingOptions(cfg.Masking), opts...)
		a.engine = a.store.Engine()
	} else {
		diag.Info(context.Background(), "masking disabled by configuration")
		a.engine = masking.NewEngine(nil, opts...)
	}

	a.logger, err = logging.NewLogger(logCfg, a.engine)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return a, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func loggingConfig(c config.LoggingConfig) (*logging.Config, error) {
	level, err := logging.LevelFromString(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	cfg := logging.NewDefaultConfig()
	cfg.Level = level
	cfg.Format = c.Format
	cfg.Output = c.Output
	cfg.Caller.Enabled = false
	cfg.Masking.Enabled = c.MaskMessages
	return cfg, nil
}

func maskingOptions(c config.MaskingConfig) masking.Options {
	opts := masking.DefaultOptions()
	opts.MatchTimeout = c.MatchTimeout.Duration()
	if c.DefaultReplacement != "" {
		opts.DefaultReplacement = c.DefaultReplacement
	}
	return opts
}

// ruleFields describes the loaded rule set for diagnostics.
func (a *app) ruleFields() []zap.Field {
	fields := []zap.Field{zap.Int("rules", len(a.engine.Rules()))}
	if a.store != nil {
		fields = append(fields, zap.String("rules_file", a.store.Path()))
	}
	return fields
}
