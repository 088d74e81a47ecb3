// Package middleware provides cross-cutting concerns for adaptive testing
// sessions: Prometheus metrics and OpenTelemetry tracing.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-catsurv/internal/ports"
)

// Metric names understood by PrometheusMetrics. Names outside this set are
// routed to the generic operation collectors.
const (
	MetricOperationDuration = "cat_operation_duration_seconds"
	MetricOperations        = "cat_operations_total"
	MetricFallbacks         = "cat_estimator_fallbacks_total"
	MetricSessionGauge      = "cat_session_gauge"
	MetricItemsAdministered = "cat_items_administered"
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks operation latency and outcomes, estimator fallbacks, and the
// number of items administered per simulated session.
type PrometheusMetrics struct {
	operationLatency  *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	fallbackCounter   *prometheus.CounterVec
	sessionGauges     *prometheus.GaugeVec
	itemsAdministered *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// its collectors with reg. A nil reg uses the default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricOperationDuration,
				Help:    "Execution time of adaptive testing operations.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"operation", "estimator", "selector"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricOperations,
				Help: "Total number of adaptive testing operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		fallbackCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFallbacks,
				Help: "Estimator fallbacks from Newton-Raphson to the bounded root search, or to the default estimator.",
			},
			[]string{"estimator", "reason"},
		),
		sessionGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricSessionGauge,
				Help: "Current values describing open sessions and batch progress.",
			},
			[]string{"metric"},
		),
		itemsAdministered: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricItemsAdministered,
				Help:    "Number of items answered when a simulated session stopped.",
				Buckets: prometheus.LinearBuckets(1, 5, 12),
			},
			[]string{"selector"},
		),
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.operationLatency.WithLabelValues(
		operation,
		label(labels, "estimator"),
		label(labels, "selector"),
	).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricFallbacks:
		pm.fallbackCounter.WithLabelValues(label(labels, "estimator"), label(labels, "reason")).Add(value)
	case MetricOperations:
		pm.operationCounter.WithLabelValues(label(labels, "operation"), label(labels, "status")).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	if metric == MetricSessionGauge {
		metric = label(labels, "metric")
	}
	pm.sessionGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	if metric == MetricItemsAdministered {
		pm.itemsAdministered.WithLabelValues(label(labels, "selector")).Observe(value)
		return
	}
	pm.operationLatency.WithLabelValues(
		metric,
		label(labels, "estimator"),
		label(labels, "selector"),
	).Observe(value)
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
