package mtx

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/kilupskalvis/exprdb/internal/models"
)

// DefaultClusterFile is the cluster-assignment file name inside a dataset directory
const DefaultClusterFile = "clusters.tsv"

// ClusterFormat is the column order of a cluster-assignment file
type ClusterFormat int

const (
	// CellFirst lines are: cell, metacluster[, cluster]
	CellFirst ClusterFormat = iota
	// CellLast lines are: metacluster[, cluster], cell
	CellLast
)

func (f ClusterFormat) String() string {
	if f == CellLast {
		return "cell-last"
	}
	return "cell-first"
}

// ParseClusterFormat parses the config spelling of a ClusterFormat
func ParseClusterFormat(s string) (ClusterFormat, error) {
	switch s {
	case "", "cell-first":
		return CellFirst, nil
	case "cell-last":
		return CellLast, nil
	default:
		return CellFirst, fmt.Errorf("unknown cluster format %q", s)
	}
}

// ReadClusters returns a sequence of assignments from a tab-delimited cluster
// file. Blank lines and lines starting with '#' are skipped. A missing cluster
// column yields models.NoCluster; a missing metacluster is malformed.
func ReadClusters(path string, format ClusterFormat) (iter.Seq2[models.ClusterAssignment, error], error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}

	return func(yield func(models.ClusterAssignment, error) bool) {
		f, err := openFile(path)
		if err != nil {
			yield(models.ClusterAssignment{}, err)
			return
		}
		defer f.Close()

		sc := newLineScanner(f)
		for sc.Scan() {
			trimmed := strings.TrimSpace(sc.Text())
			if trimmed == "" || strings.HasPrefix(trimmed, "#") {
				continue
			}
			a, err := parseAssignment(sc.Text(), format)
			if err != nil {
				yield(models.ClusterAssignment{}, malformed(path, sc.Line(), "%v", err))
				return
			}
			if !yield(a, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(models.ClusterAssignment{}, fmt.Errorf("failed to read %s: %w", path, err))
		}
	}, nil
}

func parseAssignment(line string, format ClusterFormat) (models.ClusterAssignment, error) {
	fields := strings.Split(line, "\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) > 3 {
		return models.ClusterAssignment{}, fmt.Errorf("%d columns, want at most 3", len(fields))
	}

	var cell, meta, cluster string
	switch format {
	case CellLast:
		switch len(fields) {
		case 3:
			meta, cluster, cell = fields[0], fields[1], fields[2]
		case 2:
			meta, cell = fields[0], fields[1]
		default:
			cell = fields[0]
		}
	default:
		cell = fields[0]
		if len(fields) > 1 {
			meta = fields[1]
		}
		if len(fields) > 2 {
			cluster = fields[2]
		}
	}

	if cell == "" {
		return models.ClusterAssignment{}, fmt.Errorf("missing cell id")
	}
	if meta == "" {
		return models.ClusterAssignment{}, fmt.Errorf("missing metacluster id for cell %q", cell)
	}
	metaID, err := strconv.ParseInt(meta, 10, 64)
	if err != nil {
		return models.ClusterAssignment{}, fmt.Errorf("invalid metacluster id %q", meta)
	}
	clusterID := models.NoCluster
	if cluster != "" {
		clusterID, err = strconv.ParseInt(cluster, 10, 64)
		if err != nil {
			return models.ClusterAssignment{}, fmt.Errorf("invalid cluster id %q", cluster)
		}
	}
	return models.ClusterAssignment{CellID: cell, MetaclusterID: metaID, ClusterID: clusterID}, nil
}
