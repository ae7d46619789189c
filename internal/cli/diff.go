package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/kilupskalvis/exprdb/internal/analysis"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <metacluster-a> <metacluster-b>",
	Short: "Compare gene expression between two metaclusters",
	Long: `Compute a pooled-variance t-statistic per gene between the cells of two
metaclusters. Cells with no measurement for a gene count as zero.`,
	Args: cobra.ExactArgs(2),
	Run:  runDiff,
}

var (
	diffLimit int
	diffJSON  bool
)

func init() {
	diffCmd.Flags().IntVarP(&diffLimit, "n", "n", 20, "Maximum genes to show (0 for all)")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Print results as JSON")
}

func runDiff(cmd *cobra.Command, args []string) {
	groupA, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		exitError("invalid metacluster %q", args[0])
	}
	groupB, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		exitError("invalid metacluster %q", args[1])
	}

	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	stats, err := analysis.DiffExpr(ctx, c.Store, groupA, groupB)
	if err != nil {
		c.Close()
		exitError("%v", err)
	}
	if diffLimit > 0 && len(stats) > diffLimit {
		stats = stats[:diffLimit]
	}

	if diffJSON {
		err = writeJSON(cmd.OutOrStdout(), diffRows(stats))
	} else {
		err = printDiff(cmd.OutOrStdout(), stats)
	}
	if err != nil {
		c.Close()
		exitError("%v", err)
	}
}

type diffRow struct {
	GeneID string   `json:"gene_id"`
	MeanA  float64  `json:"mean_a"`
	MeanB  float64  `json:"mean_b"`
	NA     int64    `json:"n_a"`
	NB     int64    `json:"n_b"`
	TStat  *float64 `json:"t_stat"`
}

func diffRows(stats []analysis.GeneStat) []diffRow {
	rows := make([]diffRow, len(stats))
	for i, s := range stats {
		rows[i] = diffRow{
			GeneID: s.GeneID,
			MeanA:  s.MeanA,
			MeanB:  s.MeanB,
			NA:     s.NA,
			NB:     s.NB,
			TStat:  finite(s.TStat),
		}
	}
	return rows
}

func printDiff(w io.Writer, stats []analysis.GeneStat) error {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No genes expressed in either group")
		return nil
	}

	up := color.New(color.FgGreen)
	down := color.New(color.FgRed)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	color.New(color.FgCyan, color.Bold).Fprintln(tw, "gene_id\tmean_a\tmean_b\tt")
	for _, s := range stats {
		t := formatT(s.TStat)
		switch {
		case s.TStat > 0:
			t = up.Sprint(t)
		case s.TStat < 0:
			t = down.Sprint(t)
		}
		fmt.Fprintf(tw, "%s\t%.4g\t%.4g\t%s\n", s.GeneID, s.MeanA, s.MeanB, t)
	}
	return tw.Flush()
}

func formatT(t float64) string {
	switch {
	case math.IsNaN(t):
		return "NaN"
	case math.IsInf(t, 1):
		return "+Inf"
	case math.IsInf(t, -1):
		return "-Inf"
	default:
		return strconv.FormatFloat(t, 'f', 3, 64)
	}
}
