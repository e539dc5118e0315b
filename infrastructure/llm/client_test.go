package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	mock := NewMockProvider()
	mock.Response = "Strong team, unclear market."
	client := NewClientFromProvider(mock, nil)

	text, err := client.Complete(context.Background(), "analyze", map[string]any{"max_tokens": 100})
	require.NoError(t, err)
	assert.Equal(t, "Strong team, unclear market.", text)
	assert.Equal(t, map[string]any{"max_tokens": 100}, mock.LastOptions())
}

func TestClient_CompletePropagatesError(t *testing.T) {
	mock := NewMockProvider()
	mock.Err = NewProviderError("mock", ErrorTypeRateLimit, 429, "", nil)
	client := NewClientFromProvider(mock, nil)

	text, err := client.Complete(context.Background(), "analyze", nil)

	assert.Empty(t, text)
	assert.ErrorIs(t, err, mock.Err)
}

func TestClient_EstimateTokens(t *testing.T) {
	client := NewClientFromProvider(NewMockProvider(), NewWordEstimator(1.0))

	n, err := client.EstimateTokens("one two three")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestClient_MiddlewareWrapsProvider(t *testing.T) {
	mock := NewMockProvider()
	collector := &recordingCollector{}
	client := NewClientFromProvider(mock, nil, MetricsMiddleware(collector))

	_, err := client.Complete(context.Background(), "p", nil)
	require.NoError(t, err)

	assert.Len(t, collector.find("counter", MetricLLMRequests), 1)
	assert.Equal(t, "mock-model", client.GetModel())
}
