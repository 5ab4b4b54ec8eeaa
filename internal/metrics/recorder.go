package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "kvctl"

// Operation statuses used as the "status" label.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusFailure  = "failure"
)

// Recorder collects per-invocation operation metrics. A kvctl process runs a
// single command, so metrics are exported by writing a Prometheus textfile
// (node_exporter textfile collector format) instead of serving them.
type Recorder interface {
	RecordOperation(operation, status string, duration time.Duration)
	RecordKeys(operation string, n int)

	// WriteTextfile writes every collected metric to path atomically.
	WriteTextfile(path string) error
}

// NewRecorder returns a Prometheus-backed Recorder, or a no-op one when
// enabled is false.
func NewRecorder(enabled bool) Recorder {
	if !enabled {
		return noopRecorder{}
	}

	r := &promRecorder{registry: prometheus.NewRegistry()}

	r.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of store operations by outcome",
		},
		[]string{"operation", "status"},
	)

	r.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	r.keysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "keys_total",
			Help:      "Number of keys returned or removed by an operation",
		},
		[]string{"operation"},
	)

	r.registry.MustRegister(r.operationsTotal, r.operationDuration, r.keysTotal)
	return r
}

type promRecorder struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	keysTotal         *prometheus.CounterVec
}

func (r *promRecorder) RecordOperation(operation, status string, duration time.Duration) {
	r.operationsTotal.WithLabelValues(operation, status).Inc()
	r.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (r *promRecorder) RecordKeys(operation string, n int) {
	r.keysTotal.WithLabelValues(operation).Add(float64(n))
}

func (r *promRecorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

type noopRecorder struct{}

func (noopRecorder) RecordOperation(string, string, time.Duration) {}
func (noopRecorder) RecordKeys(string, int)                       {}
func (noopRecorder) WriteTextfile(string) error                    { return nil }
