package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/infrastructure/llm"
	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/internal/application"
	"github.com/ahrav/go-panel/internal/ports"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(application.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger, err = newLogger(application.LogConfig{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)
	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")

	_, err = newLogger(application.LogConfig{Level: "loud", Format: "text"}, &buf)
	assert.Error(t, err)

	_, err = newLogger(application.LogConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}

func baseLLMConfig() application.LLMConfig {
	return application.DefaultConfig().LLM
}

func TestBuildClient(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*application.LLMConfig)
		env       map[string]string
		wantModel string
		wantErr   string
	}{
		{
			name:      "groq default model",
			env:       map[string]string{"GROQ_API_KEY": "k"},
			wantModel: llm.GroqDefaultModel,
		},
		{
			name:      "explicit model with fallback",
			mutate:    func(c *application.LLMConfig) { c.Provider = "openai/gpt-4o"; c.Fallback = "groq" },
			env:       map[string]string{"OPENAI_API_KEY": "k", "GROQ_API_KEY": "k"},
			wantModel: "gpt-4o",
		},
		{
			name:      "rate limited and words estimator",
			mutate:    func(c *application.LLMConfig) { c.RateLimit = 2; c.TokenEstimator = "words" },
			env:       map[string]string{"GROQ_API_KEY": "k"},
			wantModel: llm.GroqDefaultModel,
		},
		{
			name:    "missing api key",
			wantErr: "GROQ_API_KEY environment variable not set",
		},
		{
			name:    "missing fallback key",
			mutate:  func(c *application.LLMConfig) { c.Fallback = "anthropic" },
			env:     map[string]string{"GROQ_API_KEY": "k"},
			wantErr: "fallback: ANTHROPIC_API_KEY environment variable not set",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *application.LLMConfig) { c.Provider = "acme" },
			wantErr: `unknown provider "acme"`,
		},
		{
			name:    "unsupported groq model",
			mutate:  func(c *application.LLMConfig) { c.Provider = "groq/gpt-4o" },
			env:     map[string]string{"GROQ_API_KEY": "k"},
			wantErr: `model "gpt-4o" is not supported by provider "groq"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseLLMConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}

			client, err := buildClient(cfg, nil, nil, envFunc(tt.env))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, client.GetModel())
		})
	}
}

func TestBuildClient_MetricsAndCircuitBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded"}}`))
	}))
	t.Cleanup(srv.Close)

	cfg := baseLLMConfig()
	cfg.BaseURL = srv.URL
	cfg.CircuitBreaker = application.CircuitBreakerConfig{MaxFailures: 2, Cooldown: time.Hour}

	reg := prometheus.NewRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)

	client, err := buildClient(cfg, metrics, nil, envFunc(map[string]string{"GROQ_API_KEY": "k"}))
	require.NoError(t, err)

	for range 3 {
		_, err = client.Complete(context.Background(), "hello", nil)
		require.Error(t, err)
	}
	assert.ErrorIs(t, err, llm.ErrCircuitOpen)
	assert.NotErrorIs(t, err, ports.ErrRateLimited)

	count, err := testutil.GatherAndCount(reg, "panel_llm_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series for server errors and one for the open circuit")

	families, err := reg.Gather()
	require.NoError(t, err)
	var state float64 = -1
	for _, f := range families {
		if f.GetName() == "panel_circuit_breaker_state" {
			state = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.InDelta(t, float64(llm.StateOpen), state, 1e-9)
}
