package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("reconcile").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("reconcile").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reconcile", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reconcile", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("reconcile")))
}

func TestSetDriftOverwritesGauge(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetDrift("product_stock", 3)
	m.SetDrift("product_stock", 0)
	require.Equal(t, 0.0, testutil.ToFloat64(m.drift.WithLabelValues("product_stock")))

	var nilMetrics *Metrics
	nilMetrics.SetDrift("product_stock", 1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
