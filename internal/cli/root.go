// Package cli implements the command-line interface for exprdb.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kilupskalvis/exprdb/internal/config"
	"github.com/kilupskalvis/exprdb/internal/metrics"
	"github.com/kilupskalvis/exprdb/internal/store"
	"github.com/spf13/cobra"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	Store   *store.ExprDB
	Logger  *slog.Logger
	Metrics *metrics.Ingest
}

// Close flushes metrics and releases the store
func (c *cmdContext) Close() {
	if c.Metrics != nil && c.Config != nil && c.Config.MetricsFile != "" {
		if err := c.Metrics.WriteTextfile(c.Config.MetricsFile); err != nil {
			c.Logger.Warn("failed to write metrics", "error", err, "path", c.Config.MetricsFile)
		}
	}
	if c.Store != nil {
		c.Store.Close()
	}
}

var (
	flagConfig    string
	flagDBPath    string
	flagMemory    bool
	flagLogLevel  string
	flagLogFormat string
)

// loadConfig reads the config file and applies command-line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	return cfg, cfg.Validate()
}

// initContext loads config, sets up logging and opens the store
func initContext(ctx context.Context) *cmdContext {
	cfg, err := loadConfig()
	if err != nil {
		exitError("%v", err)
	}

	c, err := openContext(ctx, cfg, flagMemory, newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr))
	if err != nil {
		exitError("failed to open store: %v", err)
	}
	return c
}

// openContext opens the configured store, in memory when memory is set
func openContext(ctx context.Context, cfg *config.Config, memory bool, logger *slog.Logger) (*cmdContext, error) {
	c := &cmdContext{Config: cfg, Logger: logger}

	clusterFile, clusterFormat := cfg.Clusters()
	opts := []store.Option{
		store.WithLogger(logger),
		store.WithBatchSize(cfg.BatchSize),
		store.WithDuplicateGuard(cfg.GuardDuplicates),
		store.WithLayout(cfg.Layout()),
		store.WithClusterFile(clusterFile, clusterFormat),
	}
	if cfg.MetricsFile != "" {
		c.Metrics = metrics.NewIngest()
		opts = append(opts, store.WithObserver(c.Metrics))
	}

	var err error
	if memory {
		c.Store, err = store.InMemory(ctx, opts...)
	} else {
		c.Store, err = store.AsFile(ctx, cfg.DBPath, opts...)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// newLogger builds the slog logger for the configured level and format
func newLogger(logLevel, logFormat string, w io.Writer) *slog.Logger {
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if logFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

var rootCmd = &cobra.Command{
	Use:   "exprdb",
	Short: "Single-cell expression database",
	Long: `exprdb loads sparse single-cell expression matrices and cluster
assignments into an embedded SQL database and runs exploratory and
differential-expression queries against them.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default: exprdb.toml)")
	pf.StringVar(&flagDBPath, "db", "", "Database file (overrides config)")
	pf.BoolVar(&flagMemory, "memory", false, "Use a transient in-memory database")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(loadClustersCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
