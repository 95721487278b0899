package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/dumpsleuth/pkg/config"
	"github.com/dumpsleuth/pkg/telemetry"
	"github.com/dumpsleuth/pkg/utils"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger utils.Logger
	cfg    *config.Config

	telemetryShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dumpsleuth",
	Short: "A memory dump analysis tool",
	Long: `dumpsleuth analyzes crash dumps and raw memory images.

It detects the dump format, then runs a configurable set of extractors
over the file in parallel: printable strings, network indicators, registry
keys, process artifacts, custom patterns, and high-entropy blob detection.
Results are deduplicated, offset-sorted, and cached by content hash so
re-analyzing an unchanged dump is instant.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		logLevel := utils.ParseLogLevel(cfg.Log.Level)
		if verbose {
			logLevel = utils.LevelDebug
		}
		if cfg.Log.OutputPath != "" {
			logger, err = utils.NewFileLogger(logLevel, cfg.Log.OutputPath)
			if err != nil {
				return err
			}
		} else {
			logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		}

		if telemetry.Enabled() {
			shutdown, err := telemetry.Init(cmd.Context())
			if err != nil {
				logger.Warn("telemetry init failed: %v", err)
			} else {
				telemetryShutdown = shutdown
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryShutdown != nil {
			if err := telemetryShutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown failed: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

// GetLogger returns the logger configured by the root command.
func GetLogger() utils.Logger {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, os.Stdout)
	}
	return logger
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg
}

// BinName returns the binary name for help text.
func BinName() string {
	return rootCmd.Use
}
