// Package cmd wires the prepflow-scraper command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/config"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/logging"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "prepflow-scraper",
	Short: "Recipe acquisition pipeline",
	Long: `prepflow-scraper discovers recipe URLs through site sitemaps, scrapes and
normalizes the recipes, and stores them as compressed JSON with a resumable
per-source checkpoint.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml)")
}

// bootstrap loads configuration and builds the logger shared by every
// subcommand.
func bootstrap() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}
