// Package testutil writes small on-disk datasets for tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilupskalvis/exprdb/internal/mtx"
)

// DiffMatrix has genes G1..G3 over cells A1, A2 (metacluster 12) and B1 (metacluster 13)
const DiffMatrix = `%%MatrixMarket matrix coordinate real general
3 3 4
1 1 4.0
1 3 2.0
2 2 6.0
3 3 1.0
`

// DiffClusters assigns the DiffMatrix cells in cell-first order
const DiffClusters = "A1\t12\t1\nA2\t12\t2\nB1\t13\t1\n"

// WriteDataset writes matrix and label files for name under dir using the
// default layout and returns the dataset directory.
func WriteDataset(t *testing.T, dir, name, matrix string, genes, cells []string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	ds := mtx.NewDataset(dir, name)
	writeFile(t, ds.MatrixPath(), matrix)
	writeFile(t, ds.GenePath(), lines(genes))
	writeFile(t, ds.CellPath(), lines(cells))
	return dir
}

// WriteClusters writes a cluster file with the default name into dir
func WriteClusters(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, mtx.DefaultClusterFile)
	writeFile(t, path, content)
	return path
}

// DiffDataset writes the DiffMatrix dataset and its clusters into a fresh
// directory named after the dataset and returns that directory.
func DiffDataset(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	WriteDataset(t, dir, name, DiffMatrix, []string{"G1", "G2", "G3"}, []string{"A1", "A2", "B1"})
	WriteClusters(t, dir, DiffClusters)
	return dir
}

func lines(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return strings.Join(ids, "\n") + "\n"
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
