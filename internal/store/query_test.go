package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/kilupskalvis/exprdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeText(path, content string) error {
	return os.WriteFile(path, []byte(content), 0644)
}

// loadDiff loads the shared differential fixture into a fresh database
func loadDiff(t *testing.T) *ExprDB {
	t.Helper()
	ctx := context.Background()
	db := newTestDB(t)
	dir := testutil.DiffDataset(t, "E-DIFF")
	_, err := db.LoadMTX(ctx, dir, "E-DIFF")
	require.NoError(t, err)
	_, err = db.LoadClusters(ctx, dir)
	require.NoError(t, err)
	return db
}

func TestQueryData_FullOuterJoin(t *testing.T) {
	db := loadDiff(t)

	rs, err := db.QueryData(context.Background(), `
		WITH a AS (
			SELECT e.gene_id, AVG(e.expr) AS mean_a
			FROM expr e JOIN clusters c ON c.cell_id = e.cell_id
			WHERE c.metacluster_id = ?
			GROUP BY e.gene_id
		), b AS (
			SELECT e.gene_id, AVG(e.expr) AS mean_b
			FROM expr e JOIN clusters c ON c.cell_id = e.cell_id
			WHERE c.metacluster_id = ?
			GROUP BY e.gene_id
		)
		SELECT COALESCE(a.gene_id, b.gene_id) AS gene_id, a.mean_a, b.mean_b
		FROM a FULL OUTER JOIN b ON a.gene_id = b.gene_id
		ORDER BY gene_id
	`, 12, 13)
	require.NoError(t, err)

	assert.Equal(t, []string{"gene_id", "mean_a", "mean_b"}, rs.Columns)
	require.Equal(t, 3, rs.Len())

	// G1 is expressed in both groups, G2 only in 12, G3 only in 13
	assert.Equal(t, []any{"G1", 4.0, 2.0}, rs.Rows[0])
	assert.Equal(t, []any{"G2", 6.0, nil}, rs.Rows[1])
	assert.Equal(t, []any{"G3", nil, 1.0}, rs.Rows[2])
}

func TestQueryData_EngineErrorPropagates(t *testing.T) {
	db := newTestDB(t)

	_, err := db.QueryData(context.Background(), "SELEC nonsense FROM")
	assert.Error(t, err)

	_, err = db.QueryData(context.Background(), "SELECT * FROM no_such_table")
	assert.Error(t, err)
}

func TestQueryData_EmptyResult(t *testing.T) {
	db := loadDiff(t)

	rs, err := db.QueryData(context.Background(), "SELECT cell_id FROM clusters WHERE metacluster_id = 99")
	require.NoError(t, err)
	assert.Equal(t, 0, rs.Len())
	assert.Equal(t, []string{"cell_id"}, rs.Columns)
}

func TestHead(t *testing.T) {
	ctx := context.Background()
	db := loadDiff(t)

	rs, err := db.Head(ctx, "expr", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())

	rs, err = db.Head(ctx, "clusters", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Len())

	_, err = db.Head(ctx, "sqlite_master", 1)
	assert.ErrorIs(t, err, ErrUnknownTable)

	_, err = db.Count(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestScan_EmptyDatabase(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	exprRows, err := db.ScanExpr(ctx)
	require.NoError(t, err)
	assert.Empty(t, exprRows)

	clusterRows, err := db.ScanClusters(ctx)
	require.NoError(t, err)
	assert.Empty(t, clusterRows)
}

func TestExec(t *testing.T) {
	ctx := context.Background()
	db := loadDiff(t)

	n, err := db.Exec(ctx, "DELETE FROM clusters WHERE metacluster_id = ?", 13)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := db.Count(ctx, "clusters")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

type unsupportedResult struct{}

func (unsupportedResult) LastInsertId() (int64, error) { return 0, errors.New("no insert id") }
func (unsupportedResult) RowsAffected() (int64, error) { return 0, errors.New("no row count") }

func TestRowsAffected_Error(t *testing.T) {
	_, err := rowsAffected(unsupportedResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no row count")
}
