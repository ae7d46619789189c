package mtx

import (
	"fmt"
	"iter"
	"path/filepath"

	"github.com/kilupskalvis/exprdb/internal/models"
	"golang.org/x/sync/errgroup"
)

// Orientation says which matrix axis indexes genes
type Orientation int

const (
	// GenesByCells maps the row index to a gene and the column index to a cell
	GenesByCells Orientation = iota
	// CellsByGenes maps the row index to a cell and the column index to a gene
	CellsByGenes
)

func (o Orientation) String() string {
	switch o {
	case CellsByGenes:
		return "cells-by-genes"
	default:
		return "genes-by-cells"
	}
}

// ParseOrientation parses the config spelling of an Orientation
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "", "genes-by-cells":
		return GenesByCells, nil
	case "cells-by-genes":
		return CellsByGenes, nil
	default:
		return GenesByCells, fmt.Errorf("unknown orientation %q", s)
	}
}

// Layout names the files of a dataset relative to its directory and name.
// Each suffix is appended to the dataset name.
type Layout struct {
	MatrixSuffix string
	GeneSuffix   string
	CellSuffix   string
	Orientation  Orientation
}

// DefaultLayout matches the Expression Atlas aggregated count export, where the
// matrix row index selects the gene. Matrices written one row per cell, with
// entries such as "2 1 3.0" meaning cell 2 and gene 1, need CellsByGenes.
func DefaultLayout() Layout {
	return Layout{
		MatrixSuffix: ".aggregated_filtered_counts_matrix.mtx",
		GeneSuffix:   ".aggregated_filtered_counts.mtx_rows",
		CellSuffix:   ".aggregated_filtered_counts.mtx_cols",
		Orientation:  GenesByCells,
	}
}

// Dataset is one expression matrix with its label files
type Dataset struct {
	Dir    string
	Name   string
	Layout Layout
}

// NewDataset creates a Dataset using the default layout
func NewDataset(dir, name string) *Dataset {
	return &Dataset{Dir: dir, Name: name, Layout: DefaultLayout()}
}

func (d *Dataset) MatrixPath() string {
	return filepath.Join(d.Dir, d.Name+d.Layout.MatrixSuffix)
}

func (d *Dataset) GenePath() string {
	return filepath.Join(d.Dir, d.Name+d.Layout.GeneSuffix)
}

func (d *Dataset) CellPath() string {
	return filepath.Join(d.Dir, d.Name+d.Layout.CellSuffix)
}

// Records checks that all dataset files exist, reads the label files and
// returns a sequence of expression records resolved against them. The
// sequence reopens the matrix on every iteration and stops at the first error.
func (d *Dataset) Records() (iter.Seq2[models.ExpressionRecord, error], error) {
	for _, p := range []string{d.MatrixPath(), d.GenePath(), d.CellPath()} {
		if err := requireFile(p); err != nil {
			return nil, err
		}
	}

	m, err := OpenMatrix(d.MatrixPath())
	if err != nil {
		return nil, err
	}

	var genes, cells []string
	var g errgroup.Group
	g.Go(func() error {
		var err error
		genes, err = ReadLabels(d.GenePath())
		return err
	})
	g.Go(func() error {
		var err error
		cells, err = ReadLabels(d.CellPath())
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rowLabels, colLabels := genes, cells
	rowPath, colPath := d.GenePath(), d.CellPath()
	if d.Layout.Orientation == CellsByGenes {
		rowLabels, colLabels = cells, genes
		rowPath, colPath = d.CellPath(), d.GenePath()
	}

	return func(yield func(models.ExpressionRecord, error) bool) {
		for e, err := range m.Entries() {
			if err != nil {
				yield(models.ExpressionRecord{}, err)
				return
			}
			rowID, err := lookup(rowLabels, e.Row, rowPath, m.Path, e.Line)
			if err != nil {
				yield(models.ExpressionRecord{}, err)
				return
			}
			colID, err := lookup(colLabels, e.Col, colPath, m.Path, e.Line)
			if err != nil {
				yield(models.ExpressionRecord{}, err)
				return
			}

			rec := models.ExpressionRecord{GeneID: rowID, CellID: colID, Expr: e.Value}
			if d.Layout.Orientation == CellsByGenes {
				rec.GeneID, rec.CellID = colID, rowID
			}
			if !yield(rec, nil) {
				return
			}
		}
	}, nil
}

// lookup resolves a 1-based index against a label file
func lookup(labels []string, index int, labelPath, matrixPath string, line int) (string, error) {
	if index < 1 || index > len(labels) {
		return "", malformed(matrixPath, line, "index %d outside label file %s (%d labels)", index, filepath.Base(labelPath), len(labels))
	}
	id := labels[index-1]
	if id == "" {
		return "", malformed(matrixPath, line, "empty label at index %d of %s", index, filepath.Base(labelPath))
	}
	return id, nil
}
