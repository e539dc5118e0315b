package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/ports"
)

func TestAnthropicProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, AnthropicDefaultModel, body["model"])
		assert.Equal(t, float64(DefaultMaxTokens), body["max_tokens"])
		assert.NotNil(t, body["system"], "system prompt should be sent separately")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "msg_1", "type": "message", "role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"content": [{"type": "text", "text": "Clear problem. "}, {"type": "text", "text": "Thin moat."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 11, "output_tokens": 5}
		}`)
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	completion, err := provider.Complete(context.Background(), "Analyze", map[string]any{"system": "Be brief."})

	require.NoError(t, err)
	assert.Equal(t, "Clear problem. Thin moat.", completion.Text)
	assert.Equal(t, 11, completion.TokensIn)
	assert.Equal(t, 5, completion.TokensOut)
	assert.Equal(t, "anthropic", completion.Provider)
	assert.Equal(t, AnthropicDefaultModel, completion.Model)
}

func TestAnthropicProvider_RateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`)
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), "Analyze", nil)

	require.Error(t, err)
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, ErrorTypeRateLimit, perr.Type)
	assert.True(t, ports.IsTransient(err))
}

func TestAnthropicProvider_RateLimitCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`)
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), "Analyze", nil)

	require.Error(t, err)
	var transient *ports.TransientServiceError
	require.True(t, errors.As(err, &transient))
	assert.Equal(t, "anthropic", transient.Service)

	hint, ok := ports.RetryAfterHint(err)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, hint)
}

func TestAnthropicProvider_AuthErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`)
	}))
	defer server.Close()

	provider, err := newAnthropicProvider(ClientConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = provider.Complete(context.Background(), "Analyze", nil)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrAuthenticationFailed))
	assert.False(t, ports.IsTransient(err))
}

func TestNewAnthropicProvider_Defaults(t *testing.T) {
	_, err := newAnthropicProvider(ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	p, err := newAnthropicProvider(ClientConfig{APIKey: "k", Model: "claude-3-5-sonnet-latest"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-3-5-sonnet-latest", p.Model())
}
