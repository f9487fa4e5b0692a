package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder captures service operation outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// StageGauge is implemented by recorders that track records per stage.
type StageGauge interface {
	SetStageCounts(counts map[Stage]int)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// PrometheusMetricsRecorder records operations on a private registry so it
// can be exported without touching the default registry.
type PrometheusMetricsRecorder struct {
	registry  *prometheus.Registry
	ops       *prometheus.CounterVec
	durations *prometheus.HistogramVec
	stages    *prometheus.GaugeVec
}

// NewPrometheusMetricsRecorder builds a recorder with its own registry.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	r := &PrometheusMetricsRecorder{
		registry: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "grantcrm",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "grantcrm",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		stages: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "grantcrm",
			Name:      "grants",
			Help:      "Grants per pipeline stage.",
		}, []string{"stage"}),
	}
	r.registry.MustRegister(r.ops, r.durations, r.stages)
	return r
}

// Observe records a service operation outcome.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.ops.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetStageCounts replaces the per-stage gauge values.
func (r *PrometheusMetricsRecorder) SetStageCounts(counts map[Stage]int) {
	r.stages.Reset()
	for stage, n := range counts {
		r.stages.WithLabelValues(string(stage)).Set(float64(n))
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *PrometheusMetricsRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
