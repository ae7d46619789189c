// Package analysis runs differential-expression comparisons through the
// free-form query surface of the store.
package analysis

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/kilupskalvis/exprdb/internal/models"
)

// Querier is the pass-through query surface, satisfied by *store.ExprDB
type Querier interface {
	QueryData(ctx context.Context, query string, args ...any) (*models.ResultSet, error)
}

// TStatSQL collects per-gene sums for two metacluster groups. Parameters are
// group A, group B, group A, group B. Cells without a row for a gene count as
// zero, so the per-group cell totals come from clusters, not from expr. Group
// membership is a set: repeated clusters rows for a cell count it once.
const TStatSQL = `
WITH
a AS (
	SELECT e.gene_id, SUM(e.expr) AS sum_a, SUM(e.expr * e.expr) AS sumsq_a
	FROM expr e
	WHERE e.cell_id IN (SELECT cell_id FROM clusters WHERE metacluster_id = ?)
	GROUP BY e.gene_id
),
b AS (
	SELECT e.gene_id, SUM(e.expr) AS sum_b, SUM(e.expr * e.expr) AS sumsq_b
	FROM expr e
	WHERE e.cell_id IN (SELECT cell_id FROM clusters WHERE metacluster_id = ?)
	GROUP BY e.gene_id
),
n AS (
	SELECT
		(SELECT COUNT(DISTINCT cell_id) FROM clusters WHERE metacluster_id = ?) AS n_a,
		(SELECT COUNT(DISTINCT cell_id) FROM clusters WHERE metacluster_id = ?) AS n_b
)
SELECT
	COALESCE(a.gene_id, b.gene_id) AS gene_id,
	COALESCE(a.sum_a, 0.0) AS sum_a,
	COALESCE(a.sumsq_a, 0.0) AS sumsq_a,
	COALESCE(b.sum_b, 0.0) AS sum_b,
	COALESCE(b.sumsq_b, 0.0) AS sumsq_b,
	n.n_a,
	n.n_b
FROM a FULL OUTER JOIN b ON a.gene_id = b.gene_id
CROSS JOIN n
ORDER BY gene_id
`

// GeneStat is the comparison of one gene between groups A and B
type GeneStat struct {
	GeneID string  `json:"gene_id"`
	MeanA  float64 `json:"mean_a"`
	MeanB  float64 `json:"mean_b"`
	VarA   float64 `json:"var_a"`
	VarB   float64 `json:"var_b"`
	NA     int64   `json:"n_a"`
	NB     int64   `json:"n_b"`
	TStat  float64 `json:"t_stat"`
}

// Diff returns MeanA - MeanB
func (g GeneStat) Diff() float64 {
	return g.MeanA - g.MeanB
}

// DiffExpr compares every gene expressed in either metacluster. The result is
// ordered by |t| descending; NaN statistics sort last.
func DiffExpr(ctx context.Context, q Querier, groupA, groupB int64) ([]GeneStat, error) {
	if groupA == groupB {
		return nil, fmt.Errorf("groups must differ, both are %d", groupA)
	}

	rs, err := q.QueryData(ctx, TStatSQL, groupA, groupB, groupA, groupB)
	if err != nil {
		return nil, err
	}

	stats := make([]GeneStat, 0, rs.Len())
	for i, row := range rs.Rows {
		if len(row) != 7 {
			return nil, fmt.Errorf("row %d: got %d columns, want 7", i, len(row))
		}
		gene, ok := row[0].(string)
		if !ok {
			return nil, fmt.Errorf("row %d: gene_id is %T", i, row[0])
		}
		nums := make([]float64, 6)
		for j := range nums {
			if nums[j], err = toFloat(row[j+1]); err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", i, rs.Columns[j+1], err)
			}
		}
		stats = append(stats, geneStat(gene, nums[0], nums[1], nums[2], nums[3], int64(nums[4]), int64(nums[5])))
	}

	slices.SortStableFunc(stats, func(x, y GeneStat) int {
		xn, yn := math.IsNaN(x.TStat), math.IsNaN(y.TStat)
		switch {
		case xn && !yn:
			return 1
		case yn && !xn:
			return -1
		}
		if c := cmp.Compare(math.Abs(y.TStat), math.Abs(x.TStat)); c != 0 {
			return c
		}
		return cmp.Compare(x.GeneID, y.GeneID)
	})
	return stats, nil
}

func geneStat(gene string, sumA, sumsqA, sumB, sumsqB float64, nA, nB int64) GeneStat {
	g := GeneStat{GeneID: gene, NA: nA, NB: nB}
	g.MeanA, g.VarA = moments(sumA, sumsqA, nA)
	g.MeanB, g.VarB = moments(sumB, sumsqB, nB)
	g.TStat = PooledT(g.MeanA, g.VarA, nA, g.MeanB, g.VarB, nB)
	return g
}

// moments returns the mean and sample variance from a sum and sum of squares
func moments(sum, sumsq float64, n int64) (mean, variance float64) {
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	fn := float64(n)
	mean = sum / fn
	if n < 2 {
		return mean, 0
	}
	variance = (sumsq - fn*mean*mean) / (fn - 1)
	if variance < 0 {
		// rounding on near-constant groups
		variance = 0
	}
	return mean, variance
}

// PooledT is the two-sample t-statistic with a pooled variance estimate
func PooledT(meanA, varA float64, nA int64, meanB, varB float64, nB int64) float64 {
	df := nA + nB - 2
	if nA == 0 || nB == 0 || df <= 0 {
		return math.NaN()
	}
	pooled := (float64(nA-1)*varA + float64(nB-1)*varB) / float64(df)
	se := math.Sqrt(pooled * (1/float64(nA) + 1/float64(nB)))
	diff := meanA - meanB
	if se == 0 {
		if diff == 0 {
			return 0
		}
		return math.Inf(int(math.Copysign(1, diff)))
	}
	return diff / se
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}
