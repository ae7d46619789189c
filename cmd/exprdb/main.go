// Command exprdb loads single-cell expression data into an embedded SQL
// database and queries it.
package main

import (
	"os"

	"github.com/kilupskalvis/exprdb/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
