package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()
	families, err := registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewEngineMetrics(reg, "test_engine")
	assert.NotNil(t, metrics)

	metrics.Iterations.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Iterations))

	metrics.Decisions.WithLabelValues("profitable").Inc()
	metrics.Decisions.WithLabelValues("unprofitable").Add(2)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Decisions.WithLabelValues("unprofitable")))

	metrics.EstimateLatency.Observe(0.1)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.EstimateLatency))
}

func TestReporterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewReporterMetrics(reg, "test_reporter")

	metrics.BasisPoints.WithLabelValues("WETH").Set(-12)
	assert.Equal(t, float64(-12), testutil.ToFloat64(metrics.BasisPoints.WithLabelValues("WETH")))

	metrics.Reports.Inc()
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Reports))
}

func TestDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewEngineMetrics(reg, "dup")
	assert.Panics(t, func() { NewEngineMetrics(reg, "dup") })
}
