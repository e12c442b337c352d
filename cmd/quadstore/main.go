package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aleksaelezovic/quadstore/internal/config"
)

var (
	// Global flags
	configPath  string
	verbose     bool
	backendFlag string
	pathFlag    string

	// Set up by the root command before any subcommand runs
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "quadstore",
	Short: "quadstore - persistent RDF quad store",
	Long: `quadstore stores RDF triples in named contexts on Badger or SQLite.

Terms are written in N-Triples syntax (<http://example.org/s>, _:b1, "text"@en)
or as prefixed names (ex:s) using the store's namespace bindings. A single
"*" stands for a wildcard wherever a pattern is accepted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if backendFlag != "" {
			cfg.Storage.Backend = backendFlag
		}
		if pathFlag != "" {
			cfg.Storage.Path = pathFlag
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// Initialize logger
		zapConfig := zap.NewProductionConfig()
		if cfg.Logging.Development {
			zapConfig = zap.NewDevelopmentConfig()
		}
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return err
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zapConfig.Level = zap.NewAtomicLevelAt(level)
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		registry = prometheus.NewRegistry()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg != nil && cfg.Metrics.Enabled && registry != nil {
			if err := writeMetrics(cmd); err != nil {
				logger.Warn("failed to write metrics", zap.Error(err))
			}
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// writeMetrics prints the collected store metrics in the Prometheus text format
func writeMetrics(cmd *cobra.Command) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(cmd.ErrOrStderr(), expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

func init() {
	defaultConfig := os.Getenv(config.EnvConfigPath)
	if defaultConfig == "" {
		defaultConfig = "quadstore.yaml"
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfig, "Config file (or set "+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "Storage backend: badger or sqlite")
	rootCmd.PersistentFlags().StringVar(&pathFlag, "path", "", "Storage path")

	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(contextsCmd)
	rootCmd.AddCommand(lenCmd)
	rootCmd.AddCommand(addContextCmd)
	rootCmd.AddCommand(dropContextCmd)
	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(unbindCmd)
	rootCmd.AddCommand(namespacesCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
