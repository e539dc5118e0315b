package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrav/go-panel/internal/ports"
)

// Metric names emitted by MetricsMiddleware.
const (
	MetricLLMRequests = "llm_requests_total"
	MetricLLMLatency  = "llm_latency_seconds"
	MetricLLMTokens   = "llm_tokens_total"
)

type metricsProvider struct {
	next      Provider
	collector ports.MetricsCollector
}

// MetricsMiddleware records request counts, latency and token usage per
// provider, model and outcome.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	if collector == nil {
		collector = ports.NoopMetrics{}
	}
	return func(next Provider) Provider {
		return &metricsProvider{next: next, collector: collector}
	}
}

func (m *metricsProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	start := time.Now()
	completion, err := m.next.Complete(ctx, prompt, opts)

	provider, model := m.next.Name(), m.next.Model()
	if err == nil {
		if completion.Provider != "" {
			provider = completion.Provider
		}
		if completion.Model != "" {
			model = completion.Model
		}
	}
	labels := map[string]string{
		"provider": provider,
		"model":    model,
		"status":   outcome(err),
	}
	m.collector.RecordHistogram(MetricLLMLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(MetricLLMRequests, 1, labels)

	if err == nil {
		m.collector.RecordCounter(MetricLLMTokens, float64(completion.TokensIn), withLabel(labels, "token_type", "input"))
		m.collector.RecordCounter(MetricLLMTokens, float64(completion.TokensOut), withLabel(labels, "token_type", "output"))
	}
	return completion, err
}

func (m *metricsProvider) Name() string  { return m.next.Name() }
func (m *metricsProvider) Model() string { return m.next.Model() }

// outcome maps an error to a low-cardinality status label.
func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, ErrCircuitOpen) {
		return "circuit_open"
	}
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Type.String()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

func withLabel(labels map[string]string, key, value string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	out[key] = value
	return out
}
