// Package middleware provides the Prometheus and OpenTelemetry adapters for
// the analysis service.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-panel/infrastructure/llm"
	"github.com/ahrav/go-panel/internal/application"
	"github.com/ahrav/go-panel/internal/ports"
)

// Namespace prefixes every metric exported by PrometheusMetrics.
const Namespace = "panel"

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. Known metric names are routed to dedicated vectors; anything
// else lands in the generic operation vectors.
type PrometheusMetrics struct {
	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	analysisRequests *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	promptTokens     *prometheus.HistogramVec

	circuitState *prometheus.GaugeVec

	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the collector and registers its metrics with
// reg. A nil reg uses the default Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		// Completion provider metrics.
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      llm.MetricLLMRequests,
				Help:      "Completion requests by provider, model and outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      llm.MetricLLMLatency,
				Help:      "Latency of completion requests.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      llm.MetricLLMTokens,
				Help:      "Tokens consumed by completion requests.",
			},
			[]string{"provider", "model", "token_type"},
		),

		// Analysis metrics.
		analysisRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      application.MetricAnalysisRequests,
				Help:      "Analysis operations by outcome.",
			},
			[]string{"operation", "status"},
		),
		analysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      application.MetricAnalysisDuration,
				Help:      "End to end duration of analysis operations, retries included.",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"operation"},
		),
		promptTokens: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      application.MetricPromptTokens,
				Help:      "Estimated prompt size in tokens.",
				Buckets:   prometheus.ExponentialBuckets(64, 2, 8),
			},
			[]string{"operation"},
		),

		circuitState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state per provider: 0 closed, 1 open, 2 half open.",
			},
			[]string{"provider"},
		),

		// Fallbacks for names without a dedicated vector.
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of other operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "operations_total",
				Help:      "Other counted events.",
			},
			[]string{"metric", "status"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "system_state",
				Help:      "Other gauge values.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	switch operation {
	case llm.MetricLLMLatency, application.MetricAnalysisDuration:
		pm.RecordHistogram(operation, duration.Seconds(), labels)
	default:
		pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case llm.MetricLLMRequests:
		pm.llmRequests.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Add(value)
	case llm.MetricLLMTokens:
		pm.llmTokens.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "token_type"),
		).Add(value)
	case application.MetricAnalysisRequests:
		pm.analysisRequests.WithLabelValues(
			label(labels, "operation"),
			label(labels, "status"),
		).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}

// RecordHistogram implements the MetricsCollector interface.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case llm.MetricLLMLatency:
		pm.llmLatency.WithLabelValues(
			label(labels, "provider"),
			label(labels, "model"),
			label(labels, "status"),
		).Observe(value)
	case application.MetricAnalysisDuration:
		pm.analysisDuration.WithLabelValues(label(labels, "operation")).Observe(value)
	case application.MetricPromptTokens:
		pm.promptTokens.WithLabelValues(label(labels, "operation")).Observe(value)
	default:
		pm.operationLatency.WithLabelValues(metric).Observe(value)
	}
}

// CircuitObserver returns an llm.CircuitObserver that exports breaker
// transitions as a gauge.
func (pm *PrometheusMetrics) CircuitObserver() llm.CircuitObserver {
	return func(provider string, _, to llm.CircuitState) {
		pm.circuitState.WithLabelValues(provider).Set(float64(to))
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
