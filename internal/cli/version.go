package cli

import (
	"fmt"

	"github.com/kilupskalvis/exprdb/internal/store"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and engine information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "exprdb %s (engine: %s, %s)\n", Version, store.DriverName, store.BuildMode)
	},
}
