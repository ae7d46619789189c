// Package models defines the core data structures used throughout exprdb
// including expression records, cluster assignments, and query results.
package models

// NoCluster is stored as cluster_id when a cluster file has no fine-grained column
const NoCluster int64 = -1

// ExpressionRecord is one nonzero entry of an expression matrix
type ExpressionRecord struct {
	CellID string  `json:"cell_id"`
	GeneID string  `json:"gene_id"`
	Expr   float64 `json:"expr"`
}

// ClusterAssignment places a cell into a metacluster and, optionally, a cluster
type ClusterAssignment struct {
	CellID        string `json:"cell_id"`
	MetaclusterID int64  `json:"metacluster_id"`
	ClusterID     int64  `json:"cluster_id"`
}

// HasCluster returns true if the assignment carries a fine-grained cluster
func (c ClusterAssignment) HasCluster() bool {
	return c.ClusterID != NoCluster
}
