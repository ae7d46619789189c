package mtx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilupskalvis/exprdb/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioMatrix = `%%MatrixMarket matrix coordinate real general
% produced by a test
2 2 3
1 1 5.0
2 1 3.0
1 2 7.0
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// writeDataset writes a dataset using the default layout and returns it
func writeDataset(t *testing.T, matrix string, genes, cells []string) *Dataset {
	t.Helper()
	dir := t.TempDir()
	ds := NewDataset(dir, "E-TEST-1")
	require.NoError(t, os.WriteFile(ds.MatrixPath(), []byte(matrix), 0644))
	require.NoError(t, os.WriteFile(ds.GenePath(), []byte(strings.Join(genes, "\n")+"\n"), 0644))
	require.NoError(t, os.WriteFile(ds.CellPath(), []byte(strings.Join(cells, "\n")+"\n"), 0644))
	return ds
}

func collectRecords(t *testing.T, ds *Dataset) ([]models.ExpressionRecord, error) {
	t.Helper()
	seq, err := ds.Records()
	if err != nil {
		return nil, err
	}
	var out []models.ExpressionRecord
	for rec, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ==================== Matrix Tests ====================

func TestOpenMatrix_Header(t *testing.T) {
	path := writeFile(t, t.TempDir(), "m.mtx", scenarioMatrix)

	m, err := OpenMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Rows)
	assert.Equal(t, 2, m.Cols)
	assert.Equal(t, 3, m.NNZ)
	assert.Equal(t, FieldReal, m.Field)
}

func TestOpenMatrix_NoBanner(t *testing.T) {
	path := writeFile(t, t.TempDir(), "m.mtx", "4 5 0\n")

	m, err := OpenMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, 4, m.Rows)
	assert.Equal(t, 5, m.Cols)
	assert.Equal(t, 0, m.NNZ)
}

func TestOpenMatrix_Missing(t *testing.T) {
	_, err := OpenMatrix(filepath.Join(t.TempDir(), "nope.mtx"))
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestOpenMatrix_BadHeader(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"only comments", "%%MatrixMarket matrix coordinate real general\n% nothing\n"},
		{"short dims", "2 2\n"},
		{"negative dims", "2 -1 0\n"},
		{"array format", "%%MatrixMarket matrix array real general\n2 2\n"},
		{"complex field", "%%MatrixMarket matrix coordinate complex general\n2 2 0\n"},
		{"symmetric", "%%MatrixMarket matrix coordinate real symmetric\n2 2 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "m.mtx", tt.content)
			_, err := OpenMatrix(path)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestMatrix_EntriesCountMatchesNNZ(t *testing.T) {
	path := writeFile(t, t.TempDir(), "m.mtx", scenarioMatrix)
	m, err := OpenMatrix(path)
	require.NoError(t, err)

	var entries []Entry
	for e, err := range m.Entries() {
		require.NoError(t, err)
		entries = append(entries, e)
	}
	assert.Len(t, entries, m.NNZ)
	assert.Equal(t, Entry{Row: 2, Col: 1, Value: 3.0, Line: 5}, entries[1])
}

func TestMatrix_EntriesRestartable(t *testing.T) {
	path := writeFile(t, t.TempDir(), "m.mtx", scenarioMatrix)
	m, err := OpenMatrix(path)
	require.NoError(t, err)

	count := func() int {
		n := 0
		for _, err := range m.Entries() {
			require.NoError(t, err)
			n++
		}
		return n
	}
	assert.Equal(t, 3, count())
	assert.Equal(t, 3, count())
}

func TestMatrix_EntriesEarlyStop(t *testing.T) {
	path := writeFile(t, t.TempDir(), "m.mtx", scenarioMatrix)
	m, err := OpenMatrix(path)
	require.NoError(t, err)

	n := 0
	for range m.Entries() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestMatrix_Pattern(t *testing.T) {
	path := writeFile(t, t.TempDir(), "m.mtx", "%%MatrixMarket matrix coordinate pattern general\n2 2 2\n1 1\n2 2\n")
	m, err := OpenMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, FieldPattern, m.Field)

	for e, err := range m.Entries() {
		require.NoError(t, err)
		assert.Equal(t, 1.0, e.Value)
	}
}

func TestMatrix_MalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"non-numeric value", "2 2 1\n1 1 abc\n"},
		{"NaN value", "2 2 1\n1 1 NaN\n"},
		{"infinite value", "2 2 1\n1 1 -Inf\n"},
		{"infinity spelled out", "2 2 1\n1 1 Infinity\n"},
		{"non-numeric row", "2 2 1\nx 1 1.0\n"},
		{"too few columns", "2 2 1\n1 1\n"},
		{"too many columns", "2 2 1\n1 1 1.0 4\n"},
		{"row out of range", "2 2 1\n3 1 1.0\n"},
		{"zero index", "2 2 1\n0 1 1.0\n"},
		{"column out of range", "2 2 1\n1 3 1.0\n"},
		{"fewer entries than declared", "2 2 2\n1 1 1.0\n"},
		{"more entries than declared", "2 2 1\n1 1 1.0\n2 2 2.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "m.mtx", tt.content)
			m, err := OpenMatrix(path)
			require.NoError(t, err)

			var lastErr error
			for _, err := range m.Entries() {
				if err != nil {
					lastErr = err
				}
			}
			require.Error(t, lastErr)
			assert.ErrorIs(t, lastErr, ErrMalformedRecord)

			var recErr *RecordError
			assert.ErrorAs(t, lastErr, &recErr)
			assert.Equal(t, path, recErr.Path)
		})
	}
}

func TestMatrix_MalformedStopsIteration(t *testing.T) {
	path := writeFile(t, t.TempDir(), "m.mtx", "2 2 3\n1 1 1.0\n1 2 bad\n2 2 2.0\n")
	m, err := OpenMatrix(path)
	require.NoError(t, err)

	var good, bad int
	for _, err := range m.Entries() {
		if err != nil {
			bad++
			continue
		}
		good++
	}
	assert.Equal(t, 1, good)
	assert.Equal(t, 1, bad)
}

// ==================== Label Tests ====================

func TestReadLabels_FirstField(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rows", "ENSG1\tTP53\nENSG2\tBRCA1\nENSG3\n")

	labels, err := ReadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ENSG1", "ENSG2", "ENSG3"}, labels)
}

func TestReadLabels_Missing(t *testing.T) {
	_, err := ReadLabels(filepath.Join(t.TempDir(), "rows"))
	assert.ErrorIs(t, err, ErrMissingFile)
}

// ==================== Dataset Tests ====================

func TestDataset_Scenario(t *testing.T) {
	ds := writeDataset(t, scenarioMatrix, []string{"G1", "G2"}, []string{"C1", "C2"})
	ds.Layout.Orientation = CellsByGenes

	recs, err := collectRecords(t, ds)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ExpressionRecord{
		{CellID: "C1", GeneID: "G1", Expr: 5.0},
		{CellID: "C2", GeneID: "G1", Expr: 3.0},
		{CellID: "C1", GeneID: "G2", Expr: 7.0},
	}, recs)
}

func TestDataset_GenesByCells(t *testing.T) {
	ds := writeDataset(t, scenarioMatrix, []string{"G1", "G2"}, []string{"C1", "C2"})

	recs, err := collectRecords(t, ds)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ExpressionRecord{
		{GeneID: "G1", CellID: "C1", Expr: 5.0},
		{GeneID: "G2", CellID: "C1", Expr: 3.0},
		{GeneID: "G1", CellID: "C2", Expr: 7.0},
	}, recs)
}

func TestDataset_LabelsDrawnFromIndex(t *testing.T) {
	genes := []string{"G1", "G2", "G3", "G4"}
	cells := []string{"C1", "C2", "C3"}
	matrix := "4 3 4\n4 3 1\n1 1 2\n3 2 3\n2 3 4\n"
	ds := writeDataset(t, matrix, genes, cells)

	m, err := OpenMatrix(ds.MatrixPath())
	require.NoError(t, err)
	var entries []Entry
	for e, err := range m.Entries() {
		require.NoError(t, err)
		entries = append(entries, e)
	}

	recs, err := collectRecords(t, ds)
	require.NoError(t, err)
	require.Len(t, recs, len(entries))
	for i, e := range entries {
		assert.Equal(t, genes[e.Row-1], recs[i].GeneID)
		assert.Equal(t, cells[e.Col-1], recs[i].CellID)
		assert.Equal(t, e.Value, recs[i].Expr)
	}
}

func TestDataset_ZeroNNZ(t *testing.T) {
	ds := writeDataset(t, "%%MatrixMarket matrix coordinate real general\n2 2 0\n", []string{"G1", "G2"}, []string{"C1", "C2"})

	recs, err := collectRecords(t, ds)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestDataset_MissingFiles(t *testing.T) {
	for _, which := range []string{"matrix", "genes", "cells"} {
		t.Run(which, func(t *testing.T) {
			ds := writeDataset(t, scenarioMatrix, []string{"G1", "G2"}, []string{"C1", "C2"})
			switch which {
			case "matrix":
				require.NoError(t, os.Remove(ds.MatrixPath()))
			case "genes":
				require.NoError(t, os.Remove(ds.GenePath()))
			case "cells":
				require.NoError(t, os.Remove(ds.CellPath()))
			}

			_, err := ds.Records()
			assert.ErrorIs(t, err, ErrMissingFile)
		})
	}
}

func TestDataset_IndexBeyondLabels(t *testing.T) {
	// dims allow row 3 but the gene file only has two labels
	ds := writeDataset(t, "3 2 1\n3 1 1.0\n", []string{"G1", "G2"}, []string{"C1", "C2"})

	_, err := collectRecords(t, ds)
	assert.ErrorIs(t, err, ErrMalformedRecord)
	assert.Contains(t, err.Error(), "outside label file")
}

func TestDataset_EmptyLabel(t *testing.T) {
	ds := writeDataset(t, "2 2 1\n2 1 1.0\n", []string{"G1", ""}, []string{"C1", "C2"})

	_, err := collectRecords(t, ds)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestParseOrientation(t *testing.T) {
	o, err := ParseOrientation("cells-by-genes")
	require.NoError(t, err)
	assert.Equal(t, CellsByGenes, o)

	o, err = ParseOrientation("")
	require.NoError(t, err)
	assert.Equal(t, GenesByCells, o)
	assert.Equal(t, "genes-by-cells", o.String())

	_, err = ParseOrientation("sideways")
	assert.Error(t, err)
}

// ==================== Cluster Tests ====================

func collectClusters(t *testing.T, path string, format ClusterFormat) ([]models.ClusterAssignment, error) {
	t.Helper()
	seq, err := ReadClusters(path, format)
	if err != nil {
		return nil, err
	}
	var out []models.ClusterAssignment
	for a, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

func TestReadClusters_CellFirst(t *testing.T) {
	path := writeFile(t, t.TempDir(), DefaultClusterFile, "# cell\tmeta\tcluster\nC1\t12\t1\n\nC2\t12\t2\n")

	got, err := collectClusters(t, path, CellFirst)
	require.NoError(t, err)
	assert.Equal(t, []models.ClusterAssignment{
		{CellID: "C1", MetaclusterID: 12, ClusterID: 1},
		{CellID: "C2", MetaclusterID: 12, ClusterID: 2},
	}, got)
}

func TestReadClusters_MissingClusterColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), DefaultClusterFile, "C1\t12\nC2\t13\t\n")

	got, err := collectClusters(t, path, CellFirst)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.NoCluster, got[0].ClusterID)
	assert.Equal(t, models.NoCluster, got[1].ClusterID)
	assert.Equal(t, int64(13), got[1].MetaclusterID)
}

func TestReadClusters_MissingMetacluster(t *testing.T) {
	tests := []struct {
		name    string
		content string
		format  ClusterFormat
	}{
		{"cell only", "C1\n", CellFirst},
		{"empty metacluster", "C1\t\t3\n", CellFirst},
		{"cell-last cell only", "C1\n", CellLast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), DefaultClusterFile, tt.content)
			_, err := collectClusters(t, path, tt.format)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestReadClusters_CellLast(t *testing.T) {
	path := writeFile(t, t.TempDir(), DefaultClusterFile, "12\t1\tAAAC-1\n13\tAAAG-1\n")

	got, err := collectClusters(t, path, CellLast)
	require.NoError(t, err)
	assert.Equal(t, []models.ClusterAssignment{
		{CellID: "AAAC-1", MetaclusterID: 12, ClusterID: 1},
		{CellID: "AAAG-1", MetaclusterID: 13, ClusterID: models.NoCluster},
	}, got)
}

func TestReadClusters_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"non-integer metacluster", "C1\tx\t1\n"},
		{"non-integer cluster", "C1\t12\ty\n"},
		{"too many columns", "C1\t12\t1\textra\n"},
		{"empty cell", "\t12\t1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), DefaultClusterFile, tt.content)
			got, err := collectClusters(t, path, CellFirst)
			assert.ErrorIs(t, err, ErrMalformedRecord)
			assert.Empty(t, got)
		})
	}
}

func TestReadClusters_Missing(t *testing.T) {
	_, err := ReadClusters(filepath.Join(t.TempDir(), DefaultClusterFile), CellFirst)
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestParseClusterFormat(t *testing.T) {
	f, err := ParseClusterFormat("cell-last")
	require.NoError(t, err)
	assert.Equal(t, CellLast, f)
	assert.Equal(t, "cell-last", f.String())

	_, err = ParseClusterFormat("middle")
	assert.Error(t, err)
}
