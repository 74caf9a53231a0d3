// Package telemetry exposes prometheus collectors for query execution.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Execution paths reported in the path label.
const (
	PathNative      = "native"
	PathEmpty       = "empty"
	PathCount       = "count"
	PathPrimaryKey  = "primary_key"
	PathSingleTable = "single_table"
	PathMultiTable  = "multi_table"
	PathFailed      = "failed"
)

// Metrics holds the collectors of one engine. A nil *Metrics records nothing.
type Metrics struct {
	QueriesTotal     *prometheus.CounterVec
	QueryDuration    *prometheus.HistogramVec
	RowsMaterialized *prometheus.CounterVec
	BackendErrors    *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg falls back to the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relq_queries_total",
				Help: "Total number of executed queries by execution path",
			},
			[]string{"path"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relq_query_duration_seconds",
				Help:    "Time spent planning and opening query results",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		RowsMaterialized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relq_rows_materialized_total",
				Help: "Rows pulled from backend tables for client-side processing",
			},
			[]string{"table"},
		),
		BackendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relq_backend_errors_total",
				Help: "Backend failures by operation",
			},
			[]string{"op"},
		),
	}
}

// ObserveQuery counts a query on path and records how long it took.
func (m *Metrics) ObserveQuery(path string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(path).Inc()
	m.QueryDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// AddRows adds n materialized rows of table.
func (m *Metrics) AddRows(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsMaterialized.WithLabelValues(table).Add(float64(n))
}

// BackendError counts a failed backend operation.
func (m *Metrics) BackendError(op string) {
	if m == nil {
		return
	}
	m.BackendErrors.WithLabelValues(op).Inc()
}
