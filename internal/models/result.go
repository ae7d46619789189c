package models

// ResultSet holds the rows returned by a free-form query
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Len returns the number of rows
func (r *ResultSet) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// Records returns the rows as column-name keyed maps
func (r *ResultSet) Records() []map[string]any {
	out := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		rec := make(map[string]any, len(r.Columns))
		for i, col := range r.Columns {
			rec[col] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

// Column returns the index of the named column, or -1
func (r *ResultSet) Column(name string) int {
	for i, col := range r.Columns {
		if col == name {
			return i
		}
	}
	return -1
}
