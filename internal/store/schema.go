package store

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	tableExpr     = "expr"
	tableClusters = "clusters"
	tableDatasets = "datasets"
)

var tableDDL = map[string]string{
	tableExpr: `CREATE TABLE IF NOT EXISTS expr (
		cell_id TEXT,
		gene_id TEXT,
		expr DOUBLE
	)`,
	tableClusters: `CREATE TABLE IF NOT EXISTS clusters (
		cell_id TEXT,
		metacluster_id INTEGER,
		cluster_id INTEGER
	)`,
	tableDatasets: `CREATE TABLE IF NOT EXISTS datasets (
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		dir TEXT,
		row_count INTEGER NOT NULL,
		loaded_at TEXT NOT NULL
	)`,
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EnsureExprSchema creates the expr table if it does not exist
func (e *ExprDB) EnsureExprSchema(ctx context.Context) error {
	return e.ensureTables(ctx, tableExpr, tableDatasets)
}

// EnsureClusterSchema creates the clusters table if it does not exist
func (e *ExprDB) EnsureClusterSchema(ctx context.Context) error {
	return e.ensureTables(ctx, tableClusters, tableDatasets)
}

// CreateExprData is EnsureExprSchema under its setup-script name
func (e *ExprDB) CreateExprData(ctx context.Context) error {
	return e.EnsureExprSchema(ctx)
}

// CreateClusterData is EnsureClusterSchema under its setup-script name
func (e *ExprDB) CreateClusterData(ctx context.Context) error {
	return e.EnsureClusterSchema(ctx)
}

// TableExists reports whether the named table is present
func (e *ExprDB) TableExists(ctx context.Context, name string) (bool, error) {
	db, err := e.conn()
	if err != nil {
		return false, err
	}
	return tableExists(ctx, db, name)
}

// ensureTables checks and creates each table inside one transaction
func (e *ExprDB) ensureTables(ctx context.Context, names ...string) (retErr error) {
	db, err := e.conn()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	for _, name := range names {
		exists, err := tableExists(ctx, tx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := tx.ExecContext(ctx, tableDDL[name]); err != nil {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
		e.logger.Debug("created table", "table", name, "path", e.path)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

func tableExists(ctx context.Context, q querier, name string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name = ?
	`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return count > 0, nil
}
