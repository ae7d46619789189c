package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kilupskalvis/exprdb/internal/models"
)

// QueryData runs arbitrary SQL and returns every resulting row. The text is
// passed to the engine unchanged; engine errors are returned to the caller.
func (e *ExprDB) QueryData(ctx context.Context, query string, args ...any) (*models.ResultSet, error) {
	db, err := e.conn()
	if err != nil {
		return nil, err
	}
	return runQuery(ctx, db, query, args...)
}

// Exec runs a statement that returns no rows
func (e *ExprDB) Exec(ctx context.Context, stmt string, args ...any) (int64, error) {
	db, err := e.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("exec failed: %w", err)
	}
	return rowsAffected(res)
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func runQuery(ctx context.Context, q querier, query string, args ...any) (*models.ResultSet, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	rs := &models.ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			// drivers reuse byte buffers between rows
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	return rs, nil
}

// ScanExpr returns the full contents of expr in engine order
func (e *ExprDB) ScanExpr(ctx context.Context) ([]models.ExpressionRecord, error) {
	if err := e.EnsureExprSchema(ctx); err != nil {
		return nil, err
	}
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT cell_id, gene_id, expr FROM expr`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan expr: %w", err)
	}
	defer rows.Close()

	var out []models.ExpressionRecord
	for rows.Next() {
		var rec models.ExpressionRecord
		if err := rows.Scan(&rec.CellID, &rec.GeneID, &rec.Expr); err != nil {
			return nil, fmt.Errorf("failed to scan expr row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ScanClusters returns the full contents of clusters in engine order
func (e *ExprDB) ScanClusters(ctx context.Context) ([]models.ClusterAssignment, error) {
	if err := e.EnsureClusterSchema(ctx); err != nil {
		return nil, err
	}
	db, err := e.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT cell_id, metacluster_id, cluster_id FROM clusters`)
	if err != nil {
		return nil, fmt.Errorf("failed to scan clusters: %w", err)
	}
	defer rows.Close()

	var out []models.ClusterAssignment
	for rows.Next() {
		var a models.ClusterAssignment
		if err := rows.Scan(&a.CellID, &a.MetaclusterID, &a.ClusterID); err != nil {
			return nil, fmt.Errorf("failed to scan clusters row: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Head returns up to n rows of one of the exprdb tables; n <= 0 returns all
func (e *ExprDB) Head(ctx context.Context, table string, n int) (*models.ResultSet, error) {
	if _, ok := tableDDL[table]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if err := e.ensureTables(ctx, table); err != nil {
		return nil, err
	}
	query := "SELECT * FROM " + table
	if n > 0 {
		query += fmt.Sprintf(" LIMIT %d", n)
	}
	return e.QueryData(ctx, query)
}

// Count returns the number of rows in one of the exprdb tables
func (e *ExprDB) Count(ctx context.Context, table string) (int64, error) {
	if _, ok := tableDDL[table]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	if err := e.ensureTables(ctx, table); err != nil {
		return 0, err
	}
	db, err := e.conn()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
