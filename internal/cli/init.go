package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/kilupskalvis/exprdb/internal/config"
	"github.com/kilupskalvis/exprdb/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and its tables",
	Long: `Create the expression database file and the expr and clusters tables.
Running init against an existing database leaves its data untouched.`,
	Args: cobra.NoArgs,
	Run:  runInit,
}

var initWriteConfig bool

func init() {
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false, "Write the effective config to the config file if it does not exist")
}

func runInit(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitError("%v", err)
	}
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := initDatabase(context.Background(), cfg, flagMemory, logger, cmd.OutOrStdout()); err != nil {
		exitError("%v", err)
	}

	if initWriteConfig {
		if _, err := os.Stat(cfg.Path()); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Config %s already exists, not overwritten\n", cfg.Path())
			return
		}
		if err := cfg.Save(); err != nil {
			exitError("failed to write config: %v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", cfg.Path())
	}
}

// initDatabase opens or creates the configured database and ensures its tables.
// An in-memory database would vanish on exit, so memory is rejected.
func initDatabase(ctx context.Context, cfg *config.Config, memory bool, logger *slog.Logger, w io.Writer) error {
	if memory {
		return errors.New("init creates a database file and cannot be used with --memory")
	}
	existed := store.Exists(cfg.DBPath)

	c, err := openContext(ctx, cfg, false, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer c.Close()

	if err := c.Store.CreateExprData(ctx); err != nil {
		return err
	}
	if err := c.Store.CreateClusterData(ctx); err != nil {
		return err
	}

	if existed {
		fmt.Fprintf(w, "Database %s already exists, tables verified\n", cfg.DBPath)
	} else {
		fmt.Fprintf(w, "Initialized empty expression database in %s\n", cfg.DBPath)
	}
	if info, err := os.Stat(cfg.DBPath); err == nil {
		fmt.Fprintf(w, "Size: %s\n", humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
