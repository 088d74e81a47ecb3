package ports

import (
	"time"

	"github.com/ahrav/go-catsurv/internal/domain"
)

// Integrand is a real function of theta.
type Integrand func(theta float64) float64

// IntegrandErrors adapts fallible functions to Integrand. The first error
// raised is kept in Err, and every evaluation after it returns zero.
type IntegrandErrors struct{ Err error }

// Wrap returns f as an Integrand that records its errors in e.
func (e *IntegrandErrors) Wrap(f func(theta float64) (float64, error)) Integrand {
	return func(theta float64) float64 {
		if e.Err != nil {
			return 0
		}
		v, err := f(theta)
		if err != nil {
			e.Err = err
			return 0
		}
		return v
	}
}

// Integrator evaluates definite integrals over the theta support.
// Implementations must be deterministic and hold no mutable state so that a
// single instance can be shared by every estimator and selector, including
// across goroutines.
type Integrator interface {
	// Integrate returns the integral of f over the full theta support.
	Integrate(f Integrand) float64

	// IntegrateRange returns the integral of f over [lo, hi] intersected
	// with the theta support. An empty intersection integrates to zero.
	IntegrateRange(f Integrand, lo, hi float64) float64

	// Support returns the bounds of the theta support.
	Support() (lo, hi float64)
}

// RootFinder locates a root of a continuous function on a bracketing interval.
type RootFinder interface {
	// FindRoot returns x in [lo, hi] with f(x) = 0 to the finder's tolerance.
	// It fails with a precondition error wrapping domain.ErrNoBracket when f
	// does not change sign over the interval, and returns any error f
	// reports. It never panics.
	FindRoot(f func(x float64) (float64, error), lo, hi float64) (float64, error)
}

// FallbackObserver is notified whenever an estimator abandons Newton-Raphson
// for the bounded root finder, or a session substitutes its fallback
// estimator at construction.
type FallbackObserver interface {
	// ObserveFallback reports the estimator that fell back and why.
	ObserveFallback(estimator domain.EstimationType, reason error)
}

// FallbackObserverFunc adapts a plain function to FallbackObserver.
type FallbackObserverFunc func(estimator domain.EstimationType, reason error)

// ObserveFallback calls f.
func (f FallbackObserverFunc) ObserveFallback(estimator domain.EstimationType, reason error) {
	f(estimator, reason)
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus, OpenTelemetry, or custom monitoring solutions.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	// This is useful for tracking events like estimator fallbacks and errors.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	// This is useful for tracking values like open sessions.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	// This is useful for tracking distributions like test lengths.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
