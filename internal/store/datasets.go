package store

import (
	"context"
	"fmt"
	"time"

	"github.com/kilupskalvis/exprdb/internal/models"
)

// Datasets returns the load ledger, oldest first
func (e *ExprDB) Datasets(ctx context.Context) ([]models.DatasetLoad, error) {
	if err := e.ensureTables(ctx, tableDatasets); err != nil {
		return nil, err
	}
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT name, kind, dir, row_count, loaded_at
		FROM datasets
		ORDER BY loaded_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	var out []models.DatasetLoad
	for rows.Next() {
		var d models.DatasetLoad
		var kind, loadedAt string
		if err := rows.Scan(&d.Name, &kind, &d.Dir, &d.Rows, &loadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		d.Kind = models.LoadKind(kind)
		d.LoadedAt = parseTimestamp(loadedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// HasDataset reports whether the ledger holds a load of name for kind
func (e *ExprDB) HasDataset(ctx context.Context, name string, kind models.LoadKind) (bool, error) {
	if err := e.ensureTables(ctx, tableDatasets); err != nil {
		return false, err
	}
	db, err := e.conn()
	if err != nil {
		return false, err
	}
	return hasDataset(ctx, db, name, kind)
}

func hasDataset(ctx context.Context, q querier, name string, kind models.LoadKind) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM datasets WHERE name = ? AND kind = ?`, name, string(kind),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check datasets: %w", err)
	}
	return count > 0, nil
}

// loadedAtFormat is fixed width so that loaded_at sorts as text in time order
const loadedAtFormat = "2006-01-02T15:04:05.000000000Z07:00"

func recordLoad(ctx context.Context, q querier, res *LoadResult, dir string, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO datasets (name, kind, dir, row_count, loaded_at) VALUES (?, ?, ?, ?, ?)`,
		res.Dataset, string(res.Kind), dir, res.Rows, at.UTC().Format(loadedAtFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to record load: %w", err)
	}
	return nil
}
