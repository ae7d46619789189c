package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/kilupskalvis/exprdb/internal/store"
	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load <dataset-dir> [dataset-name]",
	Short: "Load an expression matrix",
	Long: `Load the Matrix Market expression matrix of a dataset into the expr table.
The dataset name is the prefix of the matrix and label files and defaults
to the directory name. Each load is all-or-nothing.`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runLoad,
}

var loadClustersCmd = &cobra.Command{
	Use:   "load-clusters <dataset-dir>",
	Short: "Load cluster assignments",
	Long:  `Load the cluster-assignment file of a dataset into the clusters table.`,
	Args:  cobra.ExactArgs(1),
	Run:   runLoadClusters,
}

var loadWithClusters bool

func init() {
	loadCmd.Flags().BoolVar(&loadWithClusters, "with-clusters", false, "Also load the dataset's cluster assignments")
}

func runLoad(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	dir := args[0]
	name := filepath.Base(filepath.Clean(dir))
	if len(args) > 1 {
		name = args[1]
	}

	if err := loadDataset(ctx, c.Store, cmd.OutOrStdout(), dir, name, loadWithClusters); err != nil {
		c.Close()
		exitError("%v", err)
	}
}

func runLoadClusters(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	if err := loadClusters(ctx, c.Store, cmd.OutOrStdout(), args[0]); err != nil {
		c.Close()
		exitError("%v", err)
	}
}

// loadDataset loads expression data and, optionally, clusters for one dataset
func loadDataset(ctx context.Context, db *store.ExprDB, w io.Writer, dir, name string, withClusters bool) error {
	fmt.Fprintf(w, "[%s] %s\n", name, dir)

	res, err := db.LoadMTX(ctx, dir, name)
	if err != nil {
		return err
	}
	printLoad(w, "expression", res)

	if withClusters {
		return loadClusters(ctx, db, w, dir)
	}
	return nil
}

func loadClusters(ctx context.Context, db *store.ExprDB, w io.Writer, dir string) error {
	res, err := db.LoadClusters(ctx, dir)
	if err != nil {
		return err
	}
	printLoad(w, "clusters", res)
	return nil
}

func printLoad(w io.Writer, what string, res *store.LoadResult) {
	green := color.New(color.FgGreen)
	green.Fprintf(w, "  %-10s ", what)
	fmt.Fprintf(w, "%s rows in %s", humanize.Comma(res.Rows), res.Elapsed.Round(time.Millisecond))
	if res.Skipped > 0 {
		fmt.Fprintf(w, " (%s explicit zeros skipped)", humanize.Comma(res.Skipped))
	}
	fmt.Fprintln(w)
}
