//go:build duckdb

package store

// Compiled with CGO and the duckdb tag:
//   CGO_ENABLED=1 go build -tags duckdb ./...
//
// DuckDB is columnar and suits the aggregate-heavy differential queries
// better than SQLite on large matrices.
//
// Driver used: github.com/marcboeker/go-duckdb

import (
	_ "github.com/marcboeker/go-duckdb"
)

const (
	// DriverName is the database/sql driver registered by this build
	DriverName = "duckdb"

	// BuildMode describes the current build configuration
	BuildMode = "duckdb"

	memoryDSN = ""
)

func fileDSN(path string) string {
	return path
}
