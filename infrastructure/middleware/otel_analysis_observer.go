package middleware

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-panel/internal/application"
	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// TracerName is the instrumentation name used when no tracer is supplied.
const TracerName = "github.com/ahrav/go-panel/analysis"

// MetricPromptBudgetUtilization is the gauge set from OnPrompt when a
// prompt budget is configured.
const MetricPromptBudgetUtilization = "prompt_budget_utilization"

// Prompt budget thresholds that produce span events.
const (
	warningThreshold  = 0.8
	criticalThreshold = 0.9
)

var _ application.AnalysisObserver = (*OTelAnalysisObserver)(nil)

// OTelAnalysisObserver traces orchestrator operations with OpenTelemetry.
// Each operation gets one span carried in the context returned from
// PreCheck, so a single observer serves concurrent operations.
type OTelAnalysisObserver struct {
	tracer  trace.Tracer
	metrics ports.MetricsCollector
}

// NewOTelAnalysisObserver creates an observer. A nil tracer uses the global
// tracer provider and a nil metrics collector disables the budget gauge.
func NewOTelAnalysisObserver(tracer trace.Tracer, metrics ports.MetricsCollector) *OTelAnalysisObserver {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &OTelAnalysisObserver{tracer: tracer, metrics: metrics}
}

// PreCheck starts the operation span.
func (o *OTelAnalysisObserver) PreCheck(ctx context.Context, operation string) context.Context {
	ctx, _ = o.tracer.Start(ctx, "Orchestrator."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("analysis.operation", operation)),
	)
	return ctx
}

// OnPrompt records the prompt size and warns when it nears the budget.
func (o *OTelAnalysisObserver) OnPrompt(ctx context.Context, operation string, usage application.PromptUsage) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("prompt.tokens", usage.PromptTokens))

	if usage.MaxPromptTokens <= 0 {
		return
	}
	span.SetAttributes(
		attribute.Int("prompt.max_tokens", usage.MaxPromptTokens),
		attribute.Int("prompt.remaining_tokens", usage.Remaining()),
	)

	utilization := float64(usage.PromptTokens) / float64(usage.MaxPromptTokens)
	o.metrics.RecordGauge(MetricPromptBudgetUtilization, utilization, map[string]string{"operation": operation})

	switch {
	case utilization >= criticalThreshold:
		span.AddEvent("prompt.threshold.critical", trace.WithAttributes(
			attribute.Float64("usage_percentage", utilization*100),
		))
	case utilization >= warningThreshold:
		span.AddEvent("prompt.threshold.warning", trace.WithAttributes(
			attribute.Float64("usage_percentage", utilization*100),
		))
	}
}

// OnRetry records a retry event on the operation span.
func (o *OTelAnalysisObserver) OnRetry(ctx context.Context, _ string, attempt int, delay time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.Int("attempt", attempt),
		attribute.Int64("delay_ms", delay.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error", err.Error()))
	}
	trace.SpanFromContext(ctx).AddEvent("analysis.retry", trace.WithAttributes(attrs...))
}

// PostCheck finalizes the span. Rejected input keeps an unset status since
// the service behaved correctly; other failures mark the span as an error.
func (o *OTelAnalysisObserver) PostCheck(
	ctx context.Context,
	_ string,
	usage application.PromptUsage,
	elapsed time.Duration,
	err error,
) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.SetAttributes(
		attribute.Int("analysis.attempts", usage.Attempts),
		attribute.Int64("analysis.duration_ms", elapsed.Milliseconds()),
	)

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInsufficientData):
		span.AddEvent("analysis.rejected", trace.WithAttributes(
			attribute.String("reason", err.Error()),
		))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
