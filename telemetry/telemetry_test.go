package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveQuery(PathMultiTable, 20*time.Millisecond)
	m.ObserveQuery(PathMultiTable, time.Millisecond)
	m.ObserveQuery(PathCount, time.Millisecond)
	m.AddRows("contributor", 6)
	m.AddRows("contributor", 0)
	m.BackendError("materialize")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(PathMultiTable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(PathCount)))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.RowsMaterialized.WithLabelValues("contributor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendErrors.WithLabelValues("materialize")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuery(PathEmpty, time.Second)
		m.AddRows("t", 3)
		m.BackendError("count")
	})
}
