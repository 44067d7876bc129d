package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hamza/scanhub/internal/config"
	"github.com/hamza/scanhub/internal/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	log     *logrus.Entry
)

var rootCmd = &cobra.Command{
	Use:   "scanhub",
	Short: "Security tool orchestration platform",
	Long: `ScanHub orchestrates external security assessment tools behind a safe
execution pipeline: tool manifests describe how commands are built, scopes
decide which targets are authorized, and every execution runs sandboxed
with a timeout.

Single tool runs and multi-step smart scans are available from this CLI
and from the HTTP API started with 'scanhub serve'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		skipConfig := map[string]bool{
			"init":    true,
			"help":    true,
			"version": true,
			"watch":   true,
		}

		if skipConfig[cmd.Name()] {
			return nil
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if verbose {
			cfg.Log.Level = "debug"
		}
		log = logging.Setup(cfg.Log)

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "scanhub.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	rootCmd.Version = "0.1.0-dev"
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
