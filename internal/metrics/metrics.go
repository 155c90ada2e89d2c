// Package metrics records engine operation counters and latencies.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder receives engine instrumentation.
//
//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks -source=metrics.go Recorder
type Recorder interface {
	// ObserveOperation records one engine operation and how long it took.
	ObserveOperation(profile, operation, status string, elapsed time.Duration)
	// CountRows adds n rows to the named outcome (inserted, skipped, updated...).
	CountRows(profile, operation, outcome string, n int)
}

// PrometheusRecorder implements Recorder on a Prometheus registry.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	rows       *prometheus.CounterVec
}

// NewPrometheusRecorder registers the ledger collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operations_total",
				Help: "Total number of engine operations by profile, operation and status",
			},
			[]string{"profile", "operation", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_milliseconds",
				Help:    "Engine operation duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			},
			[]string{"operation"},
		),
		rows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rows_total",
				Help: "Rows touched by engine operations, by outcome",
			},
			[]string{"profile", "operation", "outcome"},
		),
	}
}

// ObserveOperation implements Recorder.
func (p *PrometheusRecorder) ObserveOperation(profile, operation, status string, elapsed time.Duration) {
	p.operations.WithLabelValues(profile, operation, status).Inc()
	p.duration.WithLabelValues(operation).Observe(float64(elapsed.Microseconds()) / 1000)
}

// CountRows implements Recorder.
func (p *PrometheusRecorder) CountRows(profile, operation, outcome string, n int) {
	if n <= 0 {
		return
	}
	p.rows.WithLabelValues(profile, operation, outcome).Add(float64(n))
}

// Nop discards everything.
type Nop struct{}

// ObserveOperation implements Recorder.
func (Nop) ObserveOperation(string, string, string, time.Duration) {}

// CountRows implements Recorder.
func (Nop) CountRows(string, string, string, int) {}
