package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/kilupskalvis/exprdb/internal/models"
	"github.com/kilupskalvis/exprdb/internal/mtx"
)

// LoadResult summarizes one load call
type LoadResult struct {
	Dataset string
	Kind    models.LoadKind
	Rows    int64
	Skipped int64 // explicit zero values, which are not stored
	Elapsed time.Duration
}

// LoadMTX parses the dataset named datasetName in datasetDir and inserts every
// nonzero entry into expr. All rows of the call commit together or not at all.
// Loading the same dataset twice appends duplicates unless the duplicate guard is on.
func (e *ExprDB) LoadMTX(ctx context.Context, datasetDir, datasetName string) (res *LoadResult, err error) {
	start := time.Now()
	defer func() { e.observe(models.LoadExpression, res, time.Since(start), err) }()

	ds := &mtx.Dataset{Dir: datasetDir, Name: datasetName, Layout: e.layout}
	records, err := ds.Records()
	if err != nil {
		return nil, err
	}
	if err := e.EnsureExprSchema(ctx); err != nil {
		return nil, err
	}

	res = &LoadResult{Dataset: datasetName, Kind: models.LoadExpression}
	err = e.inLoadTx(ctx, res, datasetDir, func(tx *sql.Tx) error {
		ins, err := newBatchInserter(ctx, tx, tableExpr, []string{"cell_id", "gene_id", "expr"}, e.batchSize)
		if err != nil {
			return err
		}
		defer ins.Close()
		ins.logger = e.batchLogger(tableExpr, datasetName)

		for rec, err := range records {
			if err != nil {
				return err
			}
			if rec.Expr == 0 {
				res.Skipped++
				continue
			}
			if err := ins.Add(ctx, rec.CellID, rec.GeneID, rec.Expr); err != nil {
				return err
			}
		}
		if err := ins.Flush(ctx); err != nil {
			return err
		}
		res.Rows = ins.Rows()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", datasetName, err)
	}

	res.Elapsed = time.Since(start)
	e.logger.Info("loaded expression data",
		"dataset", datasetName, "rows", res.Rows, "skipped_zeros", res.Skipped, "elapsed", res.Elapsed)
	return res, nil
}

// LoadClusters inserts the cluster assignments found in datasetDir into
// clusters. The dataset name recorded in the ledger is the directory name.
func (e *ExprDB) LoadClusters(ctx context.Context, datasetDir string) (res *LoadResult, err error) {
	start := time.Now()
	defer func() { e.observe(models.LoadClusters, res, time.Since(start), err) }()

	name := filepath.Base(filepath.Clean(datasetDir))
	assignments, err := mtx.ReadClusters(filepath.Join(datasetDir, e.clusterFile), e.clusterFormat)
	if err != nil {
		return nil, err
	}
	if err := e.EnsureClusterSchema(ctx); err != nil {
		return nil, err
	}

	res = &LoadResult{Dataset: name, Kind: models.LoadClusters}
	err = e.inLoadTx(ctx, res, datasetDir, func(tx *sql.Tx) error {
		ins, err := newBatchInserter(ctx, tx, tableClusters, []string{"cell_id", "metacluster_id", "cluster_id"}, e.batchSize)
		if err != nil {
			return err
		}
		defer ins.Close()
		ins.logger = e.batchLogger(tableClusters, name)

		for a, err := range assignments {
			if err != nil {
				return err
			}
			if err := ins.Add(ctx, a.CellID, a.MetaclusterID, a.ClusterID); err != nil {
				return err
			}
		}
		if err := ins.Flush(ctx); err != nil {
			return err
		}
		res.Rows = ins.Rows()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load clusters for %s: %w", name, err)
	}

	res.Elapsed = time.Since(start)
	e.logger.Info("loaded cluster assignments", "dataset", name, "rows", res.Rows, "elapsed", res.Elapsed)
	return res, nil
}

// inLoadTx runs fn in a transaction, checks the duplicate guard first and
// appends the ledger entry last. Any error rolls the whole call back.
func (e *ExprDB) inLoadTx(ctx context.Context, res *LoadResult, dir string, fn func(tx *sql.Tx) error) (retErr error) {
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

	if e.guardDuplicates {
		loaded, err := hasDataset(ctx, tx, res.Dataset, res.Kind)
		if err != nil {
			return err
		}
		if loaded {
			return fmt.Errorf("%w: %s (%s)", ErrDuplicateLoad, res.Dataset, res.Kind)
		}
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := recordLoad(ctx, tx, res, dir, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}
	return nil
}

func (e *ExprDB) observe(kind models.LoadKind, res *LoadResult, elapsed time.Duration, err error) {
	if e.observer == nil {
		return
	}
	var rows int64
	if res != nil && err == nil {
		rows = res.Rows
	}
	e.observer.ObserveLoad(kind, rows, elapsed, err)
}

func (e *ExprDB) batchLogger(table, dataset string) func(batch int, rows int64) {
	return func(batch int, rows int64) {
		e.logger.Debug("inserted batch", "table", table, "dataset", dataset, "batch", batch, "rows", rows)
	}
}

// batchInserter buffers rows and writes them as multi-row INSERT statements.
// The full-batch statement is prepared once per load.
type batchInserter struct {
	tx      *sql.Tx
	table   string
	columns []string
	size    int
	full    *sql.Stmt
	args    []any
	pending int
	rows    int64
	batches int
	logger  func(batch int, rows int64)
}

func newBatchInserter(ctx context.Context, tx *sql.Tx, table string, columns []string, size int) (*batchInserter, error) {
	b := &batchInserter{
		tx:      tx,
		table:   table,
		columns: columns,
		size:    size,
		args:    make([]any, 0, size*len(columns)),
	}
	stmt, err := tx.PrepareContext(ctx, b.insertSQL(size))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	b.full = stmt
	return b, nil
}

func (b *batchInserter) insertSQL(rows int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(b.columns)), ", ") + ")"

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(") VALUES ")
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(tuple)
	}
	return sb.String()
}

// Add buffers one row, writing the batch when it is full
func (b *batchInserter) Add(ctx context.Context, values ...any) error {
	if len(values) != len(b.columns) {
		return fmt.Errorf("insert into %s: got %d values, want %d", b.table, len(values), len(b.columns))
	}
	b.args = append(b.args, values...)
	b.pending++
	if b.pending < b.size {
		return nil
	}
	if _, err := b.full.ExecContext(ctx, b.args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", b.table, err)
	}
	b.written()
	return nil
}

// Flush writes any buffered rows
func (b *batchInserter) Flush(ctx context.Context) error {
	if b.pending == 0 {
		return nil
	}
	if _, err := b.tx.ExecContext(ctx, b.insertSQL(b.pending), b.args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", b.table, err)
	}
	b.written()
	return nil
}

func (b *batchInserter) written() {
	b.rows += int64(b.pending)
	b.batches++
	if b.logger != nil {
		b.logger(b.batches, b.rows)
	}
	b.pending = 0
	b.args = b.args[:0]
}

// Rows returns the number of rows written so far
func (b *batchInserter) Rows() int64 {
	return b.rows
}

func (b *batchInserter) Close() error {
	return b.full.Close()
}
