// Package store provides the embedded-database persistence for exprdb.
// It owns the expr and clusters tables, bulk-loads parsed datasets into
// them, and passes free-form SQL through to the engine.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kilupskalvis/exprdb/internal/models"
	"github.com/kilupskalvis/exprdb/internal/mtx"
)

// DefaultPath is the database file used when no path is given
const DefaultPath = "resources/exprdb.db"

const (
	defaultBatchSize = 1024
	// maxBatchSize keeps a multi-row INSERT under SQLite's bound-variable limit
	maxBatchSize = 10000
)

var (
	// ErrClosed is returned by operations on a closed ExprDB
	ErrClosed = errors.New("exprdb is closed")
	// ErrDuplicateLoad is returned when the duplicate guard is on and a dataset was already loaded
	ErrDuplicateLoad = errors.New("dataset already loaded")
	// ErrUnknownTable is returned when a scan names a table exprdb does not own
	ErrUnknownTable = errors.New("unknown table")
)

// LoadObserver receives the outcome of every load call
type LoadObserver interface {
	ObserveLoad(kind models.LoadKind, rows int64, elapsed time.Duration, err error)
}

// ExprDB is a handle on one expression database, file-backed or in memory.
// It holds a single connection and is not safe for concurrent use.
type ExprDB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	batchSize       int
	guardDuplicates bool
	layout          mtx.Layout
	clusterFile     string
	clusterFormat   mtx.ClusterFormat
	observer        LoadObserver
}

// Option configures an ExprDB at construction time
type Option func(*ExprDB)

// WithLogger sets the logger used for load progress
func WithLogger(logger *slog.Logger) Option {
	return func(e *ExprDB) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBatchSize sets the number of rows per INSERT statement
func WithBatchSize(n int) Option {
	return func(e *ExprDB) {
		switch {
		case n <= 0:
			e.batchSize = defaultBatchSize
		case n > maxBatchSize:
			e.batchSize = maxBatchSize
		default:
			e.batchSize = n
		}
	}
}

// WithDuplicateGuard makes loads fail with ErrDuplicateLoad when the
// datasets ledger already holds the same dataset and kind
func WithDuplicateGuard(on bool) Option {
	return func(e *ExprDB) { e.guardDuplicates = on }
}

// WithLayout sets the file layout used by LoadMTX
func WithLayout(layout mtx.Layout) Option {
	return func(e *ExprDB) { e.layout = layout }
}

// WithClusterFile sets the cluster file name and column order used by LoadClusters
func WithClusterFile(name string, format mtx.ClusterFormat) Option {
	return func(e *ExprDB) {
		if name != "" {
			e.clusterFile = name
		}
		e.clusterFormat = format
	}
}

// WithObserver registers a LoadObserver, typically ingest metrics
func WithObserver(o LoadObserver) Option {
	return func(e *ExprDB) { e.observer = o }
}

// Exists reports whether a database file already exists at path.
// An empty path means DefaultPath; the in-memory path never exists.
func Exists(path string) bool {
	if path == "" {
		path = DefaultPath
	}
	if path == memoryPath {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

const memoryPath = ":memory:"

// AsFile opens or creates a file-backed database at path (DefaultPath if empty)
func AsFile(ctx context.Context, path string, opts ...Option) (*ExprDB, error) {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	return open(ctx, fileDSN(path), path, opts)
}

// InMemory opens a transient database that vanishes on Close
func InMemory(ctx context.Context, opts ...Option) (*ExprDB, error) {
	return open(ctx, memoryDSN, memoryPath, opts)
}

func open(ctx context.Context, dsn, path string, opts []Option) (*ExprDB, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database lives inside a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	e := &ExprDB{
		db:            db,
		path:          path,
		logger:        slog.New(slog.DiscardHandler),
		batchSize:     defaultBatchSize,
		layout:        mtx.DefaultLayout(),
		clusterFile:   mtx.DefaultClusterFile,
		clusterFormat: mtx.CellFirst,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the connection. Closing twice is a no-op.
func (e *ExprDB) Close() error {
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

// Path returns the database file path, or ":memory:"
func (e *ExprDB) Path() string {
	return e.path
}

// IsMemory returns true for a transient database
func (e *ExprDB) IsMemory() bool {
	return e.path == memoryPath
}

// DB returns the underlying database connection for advanced queries
func (e *ExprDB) DB() *sql.DB {
	return e.db
}

func (e *ExprDB) conn() (*sql.DB, error) {
	if e.db == nil {
		return nil, ErrClosed
	}
	return e.db, nil
}

// parseTimestamp parses a timestamp string from the database in various formats
func parseTimestamp(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999-07:00",
		"2006-01-02 15:04:05-07:00",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
