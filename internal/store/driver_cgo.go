//go:build cgo_sqlite && !duckdb

package store

// Compiled with CGO and the cgo_sqlite tag:
//   CGO_ENABLED=1 go build -tags cgo_sqlite ./...
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver registered by this build
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"

	memoryDSN = ":memory:"
)

func fileDSN(path string) string {
	return "file:" + path + "?_journal_mode=WAL&_synchronous=NORMAL"
}
