package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveOperation("default", "admit", StatusOK, 12*time.Millisecond)
	r.ObserveOperation("default", "admit", StatusOK, 3*time.Millisecond)
	r.ObserveOperation("default", "admit", StatusError, time.Millisecond)
	r.CountRows("default", "admit", "inserted", 5)
	r.CountRows("default", "admit", "skipped", 0)

	assert.InDelta(t, 2, testutil.ToFloat64(r.operations.WithLabelValues("default", "admit", StatusOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.operations.WithLabelValues("default", "admit", StatusError)), 0)
	assert.InDelta(t, 5, testutil.ToFloat64(r.rows.WithLabelValues("default", "admit", "inserted")), 0)

	count, err := testutil.GatherAndCount(reg, "ledger_rows_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "zero-row outcomes are not emitted")
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveOperation("p", "op", StatusOK, time.Second)
	r.CountRows("p", "op", "x", 1)
}
