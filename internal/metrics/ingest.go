// Package metrics records ingest counters and load durations with Prometheus
// collectors on a private registry. A CLI run writes them to a textfile for
// the node exporter's textfile collector.
package metrics

import (
	"time"

	"github.com/kilupskalvis/exprdb/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Ingest implements store.LoadObserver
type Ingest struct {
	registry *prometheus.Registry
	rows     *prometheus.CounterVec
	loads    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewIngest creates the collectors and registers them on a fresh registry
func NewIngest() *Ingest {
	m := &Ingest{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exprdb",
			Name:      "rows_loaded_total",
			Help:      "Rows committed by load calls.",
		}, []string{"table"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "exprdb",
			Name:      "loads_total",
			Help:      "Load calls by table and result.",
		}, []string{"table", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "exprdb",
			Name:      "load_duration_seconds",
			Help:      "Wall time of load calls.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"table"}),
	}
	m.registry.MustRegister(m.rows, m.loads, m.duration)
	return m
}

// ObserveLoad records one load call
func (m *Ingest) ObserveLoad(kind models.LoadKind, rows int64, elapsed time.Duration, err error) {
	table := string(kind)
	result := "success"
	if err != nil {
		result = "error"
	}
	m.loads.WithLabelValues(table, result).Inc()
	m.duration.WithLabelValues(table).Observe(elapsed.Seconds())
	if err == nil {
		m.rows.WithLabelValues(table).Add(float64(rows))
	}
}

// Gatherer exposes the private registry
func (m *Ingest) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format to path
func (m *Ingest) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
