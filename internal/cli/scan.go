package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/exprdb/internal/store"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:       "scan <expr|clusters|datasets>",
	Short:     "Show the first rows of a table",
	Long:      `Print a short excerpt of one of the exprdb tables for quick inspection.`,
	ValidArgs: []string{"expr", "clusters", "datasets"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Run:       runScan,
}

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List loaded datasets",
	Long:  `List every load recorded in the datasets ledger, oldest first.`,
	Args:  cobra.NoArgs,
	Run:   runDatasets,
}

var (
	scanLimit int
	scanJSON  bool
)

func init() {
	scanCmd.Flags().IntVarP(&scanLimit, "n", "n", 20, "Maximum rows to show (0 for all)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Print rows as JSON")
}

func runScan(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	if err := scanTable(ctx, c.Store, cmd.OutOrStdout(), args[0], scanLimit, scanJSON); err != nil {
		c.Close()
		exitError("%v", err)
	}
}

func scanTable(ctx context.Context, db *store.ExprDB, w io.Writer, table string, limit int, asJSON bool) error {
	rs, err := db.Head(ctx, table, limit)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, rs)
	}
	return writeTable(w, rs)
}

func runDatasets(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	if err := listDatasets(ctx, c.Store, cmd.OutOrStdout(), time.Now()); err != nil {
		c.Close()
		exitError("%v", err)
	}
}

func listDatasets(ctx context.Context, db *store.ExprDB, w io.Writer, now time.Time) error {
	loads, err := db.Datasets(ctx)
	if err != nil {
		return err
	}
	if len(loads) == 0 {
		fmt.Fprintln(w, "No datasets loaded")
		return nil
	}

	yellow := color.New(color.FgYellow)
	for _, l := range loads {
		yellow.Fprintf(w, "%-24s ", l.Name)
		fmt.Fprintf(w, "%-8s %12s rows  %s\n", l.Kind, humanize.Comma(l.Rows), humanize.RelTime(l.LoadedAt, now, "ago", "from now"))
	}
	return nil
}
