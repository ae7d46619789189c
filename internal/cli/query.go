package cli

import (
	"context"
	"io"
	"strings"

	"github.com/kilupskalvis/exprdb/internal/store"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a SQL query",
	Long: `Run arbitrary SQL against the expr and clusters tables and print the rows.
Use "-" to read the query from standard input.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuery,
}

var queryJSON bool

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print rows as JSON")
}

func runQuery(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext(ctx)
	defer c.Close()

	text := strings.Join(args, " ")
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			c.Close()
			exitError("failed to read query: %v", err)
		}
		text = string(data)
	}

	if err := runSQL(ctx, c.Store, cmd.OutOrStdout(), text, queryJSON); err != nil {
		c.Close()
		exitError("%v", err)
	}
}

func runSQL(ctx context.Context, db *store.ExprDB, w io.Writer, text string, asJSON bool) error {
	rs, err := db.QueryData(ctx, text)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, rs)
	}
	return writeTable(w, rs)
}

