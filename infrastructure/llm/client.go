// Package llm is the text completion service behind feedback analysis. It
// hides provider SDKs (Groq and OpenAI through the OpenAI wire protocol,
// Anthropic, Google Gemini) behind one Provider interface and layers
// timeouts, rate limiting, circuit breaking, metrics and tracing on top as
// composable middleware.
//
//	registry := llm.NewRegistry(llm.RegistryConfig{
//	    DefaultMiddleware: []llm.Middleware{llm.TimeoutMiddleware(30 * time.Second)},
//	})
//	provider, err := registry.Provider("groq/llama-3.1-8b-instant")
//	client := llm.NewClientFromProvider(provider, nil, llm.MetricsMiddleware(collector))
//	text, err := client.Complete(ctx, prompt, nil)
//
// The package never retries. Callers decide which failures are worth
// another attempt by inspecting errors with ports.IsTransient.
package llm

import (
	"context"
	"time"

	"github.com/ahrav/go-panel/internal/ports"
)

// Completion is the result of a single provider call.
type Completion struct {
	Text      string
	TokensIn  int
	TokensOut int

	// Provider and Model identify the backend that actually answered,
	// which differs from the wrapper's own when a fallback served the call.
	Provider string
	Model    string
}

// Provider is the minimal contract every backend implements and every
// middleware wraps.
type Provider interface {
	// Complete sends prompt to the backend. opts carries request settings
	// such as "max_tokens", "temperature" and "system".
	Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error)

	// Name identifies the backend, e.g. "groq".
	Name() string

	// Model returns the configured model.
	Model() string
}

// Middleware decorates a Provider.
type Middleware func(Provider) Provider

// Chain applies middleware so that the first element is the outermost.
func Chain(p Provider, mw ...Middleware) Provider {
	for i := len(mw) - 1; i >= 0; i-- {
		p = mw[i](p)
	}
	return p
}

// TokenEstimator approximates token counts before a request is sent.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig configures a single provider client.
type ClientConfig struct {
	// APIKey authenticates requests.
	APIKey string

	// Model is the model identifier; providers fall back to their default.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// Timeout bounds the underlying HTTP client. Per-call deadlines are set
	// by TimeoutMiddleware.
	Timeout time.Duration
}

// Client adapts a Provider chain to ports.LLMClient.
type Client struct {
	provider  Provider
	estimator TokenEstimator
}

var _ ports.LLMClient = (*Client)(nil)

// NewClientFromProvider wraps a provider chain built by a Registry, possibly
// composed with FallbackProvider, in mw. A nil estimator counts characters.
func NewClientFromProvider(provider Provider, estimator TokenEstimator, mw ...Middleware) *Client {
	if estimator == nil {
		estimator = NewCharacterEstimator(DefaultCharsPerToken)
	}
	return &Client{
		provider:  Chain(provider, mw...),
		estimator: estimator,
	}
}

// Complete implements ports.LLMClient.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	completion, err := c.provider.Complete(ctx, prompt, options)
	if err != nil {
		return "", err
	}
	return completion.Text, nil
}

// EstimateTokens implements ports.LLMClient.
func (c *Client) EstimateTokens(text string) (int, error) {
	return c.estimator.EstimateTokens(text), nil
}

// GetModel implements ports.LLMClient.
func (c *Client) GetModel() string { return c.provider.Model() }

// ProviderFactory builds a Provider from configuration.
type ProviderFactory func(ClientConfig) (Provider, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory makes a provider type available to Registry.
// It is not safe to call concurrently with Registry.Provider.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
