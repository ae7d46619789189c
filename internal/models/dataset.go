package models

import "time"

// LoadKind identifies which table a load targeted
type LoadKind string

const (
	LoadExpression LoadKind = "expr"
	LoadClusters   LoadKind = "clusters"
)

// DatasetLoad is one entry of the datasets ledger
type DatasetLoad struct {
	Name     string    `json:"name"`
	Kind     LoadKind  `json:"kind"`
	Dir      string    `json:"dir"`
	Rows     int64     `json:"rows"`
	LoadedAt time.Time `json:"loaded_at"`
}
