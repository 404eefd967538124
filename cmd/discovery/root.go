package main

import (
	"fmt"

	"github.com/earthwork-discovery/internal/config"
	"github.com/earthwork-discovery/internal/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	envFile   string
	outputDir string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "discovery",
		Short: "Find candidate earthworks in elevation and satellite data",
		Long: `discovery trains a classifier on known earthwork sites and scans the
elevation tiles around them for new candidates.

Commands:
  run   - full run: tile selection, features, training, prediction, outputs
  tiles - report which elevation tiles cover the known sites`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "environment file with the run configuration")
	root.PersistentFlags().StringVarP(&opts.outputDir, "output", "o", "", "output root (overrides OUTPUT_DIR)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(newRunCmd(opts), newTilesCmd(opts))
	return root
}

// setup loads and validates the configuration and builds the logger.
func (o *rootOptions) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return nil, nil, err
	}
	if o.outputDir != "" {
		cfg.Data.OutputDir = o.outputDir
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
