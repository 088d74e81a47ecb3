package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-catsurv/internal/domain"
	"github.com/ahrav/go-catsurv/internal/ports"
)

// TracerName is the instrumentation scope of session spans.
const TracerName = "catsurv"

var _ ports.FallbackObserver = (*SessionTracer)(nil)

// SessionTracer instruments session operations with OpenTelemetry spans and
// feeds latency, outcome and fallback counts to a metrics collector. Both the
// global tracer provider and a nil collector are acceptable; without an SDK
// installed the spans are no-ops.
type SessionTracer struct {
	tracer    trace.Tracer
	metrics   ports.MetricsCollector
	sessionID string
	estimator string
	selector  string
}

// NewSessionTracer creates a tracer for one session.
func NewSessionTracer(metrics ports.MetricsCollector, sessionID, estimator, selector string) *SessionTracer {
	return &SessionTracer{
		tracer:    otel.Tracer(TracerName),
		metrics:   metrics,
		sessionID: sessionID,
		estimator: estimator,
		selector:  selector,
	}
}

// WithTracer replaces the tracer, mainly for tests with an in-memory provider.
func (t *SessionTracer) WithTracer(tr trace.Tracer) *SessionTracer {
	t.tracer = tr
	return t
}

// Start opens a span named "Cat.<operation>". The returned finish function
// ends the span, sets its status from err and records latency and outcome.
func (t *SessionTracer) Start(
	ctx context.Context,
	operation string,
	attrs ...attribute.KeyValue,
) (context.Context, func(err error)) {
	started := time.Now()
	ctx, span := t.tracer.Start(ctx, "Cat."+operation)
	span.SetAttributes(
		attribute.String("cat.session_id", t.sessionID),
		attribute.String("cat.estimator", t.estimator),
		attribute.String("cat.selector", t.selector),
	)
	span.SetAttributes(attrs...)

	return ctx, func(err error) {
		defer span.End()

		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			var pre *domain.PreconditionError
			if errors.As(err, &pre) {
				span.AddEvent("cat.precondition_failed", trace.WithAttributes(
					attribute.String("operation", pre.Operation),
				))
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}

		if t.metrics != nil {
			t.metrics.RecordLatency(operation, time.Since(started), t.labels())
			t.metrics.RecordCounter(MetricOperations, 1, map[string]string{
				"operation": operation,
				"status":    status,
			})
		}
	}
}

// ObserveFallback implements ports.FallbackObserver by counting the fallback
// under a coarse reason label.
func (t *SessionTracer) ObserveFallback(estimator domain.EstimationType, reason error) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordCounter(MetricFallbacks, 1, map[string]string{
		"estimator": string(estimator),
		"reason":    FallbackReason(reason),
	})
}

// RecordSessionLength records how many items a simulated session administered.
func (t *SessionTracer) RecordSessionLength(ctx context.Context, answered int) {
	trace.SpanFromContext(ctx).AddEvent("cat.session_stopped", trace.WithAttributes(
		attribute.Int("answered", answered),
	))
	if t.metrics != nil {
		t.metrics.RecordHistogram(MetricItemsAdministered, float64(answered), map[string]string{
			"selector": t.selector,
		})
	}
}

// RecordRowsDone sets the session gauge "<operation>_rows_done" to the
// number of batch rows finished so far.
func (t *SessionTracer) RecordRowsDone(operation string, done int) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordGauge(MetricSessionGauge, float64(done), map[string]string{
		"metric": operation + "_rows_done",
	})
}

// FallbackReason maps a fallback cause to a metric label value.
func FallbackReason(reason error) string {
	switch {
	case errors.Is(reason, domain.ErrNumericalDomain):
		return "numerical_domain"
	case errors.Is(reason, domain.ErrNoAnsweredItems):
		return "no_answers"
	case errors.Is(reason, domain.ErrAllExtreme):
		return "all_extreme"
	default:
		return "other"
	}
}

func (t *SessionTracer) labels() map[string]string {
	return map[string]string{
		"estimator": t.estimator,
		"selector":  t.selector,
	}
}
