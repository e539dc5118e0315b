package ports

import (
	"context"
	"time"
)

// LLMClient is the text completion service the analysis pipeline depends
// on. Implementations wrap a concrete provider together with its timeout,
// rate limiting and observability middleware. Retries are not expected here;
// the caller owns the retry policy.
type LLMClient interface {
	// Complete sends prompt to the provider and returns the generated text.
	//
	// Common options:
	//   - "temperature": float64
	//   - "max_tokens": int
	//   - "system": string
	//
	// Rate or quota exhaustion must be reported with an error satisfying
	// IsTransient so callers can retry it.
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// EstimateTokens returns an approximate token count for text.
	EstimateTokens(text string) (int, error)

	// GetModel returns the model identifier used by this client.
	GetModel() string
}

// MetricsCollector records operational metrics. Implementations should
// integrate with a monitoring backend such as Prometheus.
type MetricsCollector interface {
	// RecordLatency records the duration of an operation.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) RecordLatency(string, time.Duration, map[string]string) {}
func (NoopMetrics) RecordCounter(string, float64, map[string]string)       {}
func (NoopMetrics) RecordGauge(string, float64, map[string]string)         {}
func (NoopMetrics) RecordHistogram(string, float64, map[string]string)     {}
