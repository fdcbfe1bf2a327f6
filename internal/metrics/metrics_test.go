package metrics_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tos-network/pgdb/internal/metrics"
)

func TestCounterAndGaugeSnapshot(t *testing.T) {
	r := metrics.NewRegistry()
	r.Counter("records.merged").Add(3)
	r.Counter("records.merged").Inc()
	r.Gauge("relay.pending").Set(7)

	snap := r.Snapshot()
	require.Equal(t, int64(4), snap.Counters["records.merged"])
	require.Equal(t, int64(7), snap.Gauges["relay.pending"])
}

func TestSampleSystemNeverErrors(t *testing.T) {
	s := metrics.SampleSystem()
	require.GreaterOrEqual(t, s.CPUTimeCentiseconds, int64(0))
}
