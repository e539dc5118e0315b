package llm

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// ProviderConfig describes how to reach one named backend.
type ProviderConfig struct {
	// Type selects the provider factory (openai, groq, anthropic, google).
	Type string
	// EnvVar names the environment variable holding the API key.
	EnvVar string
	// AltEnvVars are consulted in order when EnvVar is unset.
	AltEnvVars []string
	// DefaultModel is used when a spec names only the provider.
	DefaultModel string
	// SupportedModels restricts the accepted models. Empty allows any.
	SupportedModels []string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Middleware is applied inside the registry defaults.
	Middleware []Middleware
}

// DefaultProviders lists the backends known out of the box.
var DefaultProviders = map[string]ProviderConfig{
	"groq": {
		Type:         "groq",
		EnvVar:       "GROQ_API_KEY",
		DefaultModel: GroqDefaultModel,
		SupportedModels: []string{
			"llama-3.1-8b-instant", "llama-3.3-70b-versatile",
			"llama3-8b-8192", "llama3-70b-8192",
			"gemma2-9b-it",
		},
	},
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: OpenAIDefaultModel,
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: AnthropicDefaultModel,
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		AltEnvVars:   []string{"GEMINI_API_KEY"},
		DefaultModel: GoogleDefaultModel,
	},
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Providers map[string]ProviderConfig
	// DefaultTimeout bounds the provider HTTP clients.
	DefaultTimeout time.Duration
	// DefaultMiddleware wraps every provider, first outermost.
	DefaultMiddleware []Middleware
	// Getenv reads API keys; os.Getenv when nil.
	Getenv func(string) string
}

// Registry builds and caches providers addressed as "provider" or
// "provider/model".
type Registry struct {
	providers  map[string]ProviderConfig
	middleware []Middleware
	timeout    time.Duration
	getenv     func(string) string

	mu    sync.Mutex
	cache map[string]Provider
}

// NewRegistry creates a registry. Providers defaults to DefaultProviders.
func NewRegistry(config RegistryConfig) *Registry {
	providers := config.Providers
	if providers == nil {
		providers = DefaultProviders
	}
	getenv := config.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Registry{
		providers:  providers,
		middleware: slices.Clone(config.DefaultMiddleware),
		timeout:    config.DefaultTimeout,
		getenv:     getenv,
		cache:      make(map[string]Provider),
	}
}

// Provider returns the wrapped provider for spec, creating it on first use.
func (r *Registry) Provider(spec string) (Provider, error) {
	name, model, err := r.ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	key := name + "/" + model

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.cache[key]; ok {
		return p, nil
	}

	cfg := r.providers[name]
	apiKey := r.apiKey(cfg)
	if apiKey == "" {
		vars := append([]string{cfg.EnvVar}, cfg.AltEnvVars...)
		return nil, fmt.Errorf("%s environment variable not set for provider %q", strings.Join(vars, " or "), name)
	}

	factory, ok := providerFactories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown provider type %q for %q", cfg.Type, name)
	}
	base, err := factory(ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: cfg.BaseURL,
		Timeout: r.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", key, err)
	}

	mw := append(slices.Clone(r.middleware), cfg.Middleware...)
	p := Chain(base, mw...)
	r.cache[key] = p
	return p, nil
}

func (r *Registry) apiKey(cfg ProviderConfig) string {
	if key := r.getenv(cfg.EnvVar); key != "" {
		return key
	}
	for _, env := range cfg.AltEnvVars {
		if key := r.getenv(env); key != "" {
			return key
		}
	}
	return ""
}

// ParseSpec splits "provider[/model]" and validates both halves.
func (r *Registry) ParseSpec(spec string) (provider, model string, err error) {
	if spec == "" {
		return "", "", fmt.Errorf("provider specification cannot be empty")
	}

	provider, model, _ = strings.Cut(spec, "/")
	cfg, ok := r.providers[provider]
	if !ok {
		return "", "", fmt.Errorf("unknown provider %q", provider)
	}
	if model == "" {
		model = cfg.DefaultModel
	}
	if len(cfg.SupportedModels) > 0 && !slices.Contains(cfg.SupportedModels, model) {
		return "", "", fmt.Errorf("model %q is not supported by provider %q (supported: %s)",
			model, provider, strings.Join(cfg.SupportedModels, ", "))
	}
	return provider, model, nil
}
