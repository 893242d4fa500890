package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/anneal-io/anneal/internal/config"
	"github.com/anneal-io/anneal/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "anneal",
	Short: "Declarative infrastructure reconciler",
	Long: `Anneal converges remote infrastructure onto a declared resource graph:
dependency-ordered, idempotent, and tolerant of partial failure.

It consumes a YAML manifest of resources whose properties may reference
each other's outputs, orders them, and applies each one through a
provider client, skipping writes whose observed state already matches.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to anneal.toml (optional)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override configured log level")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the runtime configuration: file if given or present,
// defaults otherwise, then flag overrides. Also initializes logging.
func loadConfig() (config.Config, error) {
	cfg := config.Default()

	path := configPath
	if path == "" {
		if _, err := os.Stat("anneal.toml"); err == nil {
			path = "anneal.toml"
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.Init(cfg.Log.Level, cfg.Log.JSON)
	return cfg, nil
}
