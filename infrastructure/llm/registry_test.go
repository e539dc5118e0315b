package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestRegistry_ParseSpec(t *testing.T) {
	r := NewRegistry(RegistryConfig{})

	tests := []struct {
		spec      string
		provider  string
		model     string
		wantError string
	}{
		{spec: "groq", provider: "groq", model: GroqDefaultModel},
		{spec: "groq/llama-3.3-70b-versatile", provider: "groq", model: "llama-3.3-70b-versatile"},
		{spec: "openai/gpt-4o", provider: "openai", model: "gpt-4o"},
		{spec: "anthropic", provider: "anthropic", model: AnthropicDefaultModel},
		{spec: "", wantError: "provider specification cannot be empty"},
		{spec: "cohere", wantError: `unknown provider "cohere"`},
		{spec: "groq/gpt-4o", wantError: `model "gpt-4o" is not supported by provider "groq"`},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			provider, model, err := r.ParseSpec(tt.spec)
			if tt.wantError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
			assert.Equal(t, tt.model, model)
		})
	}
}

func TestRegistry_ProviderRequiresKey(t *testing.T) {
	r := NewRegistry(RegistryConfig{Getenv: fakeEnv(nil)})

	_, err := r.Provider("groq")

	assert.EqualError(t, err, `GROQ_API_KEY environment variable not set for provider "groq"`)
}

func TestRegistry_APIKeyLookup(t *testing.T) {
	providers := map[string]ProviderConfig{
		"gemini": {Type: "test-keys", EnvVar: "PRIMARY_KEY", AltEnvVars: []string{"ALT_KEY", "LAST_KEY"}, DefaultModel: "m"},
	}

	tests := []struct {
		name      string
		env       map[string]string
		wantKey   string
		wantError string
	}{
		{name: "primary", env: map[string]string{"PRIMARY_KEY": "p", "ALT_KEY": "a"}, wantKey: "p"},
		{name: "first alternative", env: map[string]string{"ALT_KEY": "a", "LAST_KEY": "l"}, wantKey: "a"},
		{name: "last alternative", env: map[string]string{"LAST_KEY": "l"}, wantKey: "l"},
		{name: "none set", wantError: `PRIMARY_KEY or ALT_KEY or LAST_KEY environment variable not set for provider "gemini"`},
	}

	var gotKey string
	RegisterProviderFactory("test-keys", func(cfg ClientConfig) (Provider, error) {
		gotKey = cfg.APIKey
		return NewMockProvider(), nil
	})
	t.Cleanup(func() { delete(providerFactories, "test-keys") })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotKey = ""
			r := NewRegistry(RegistryConfig{Providers: providers, Getenv: fakeEnv(tt.env)})

			_, err := r.Provider("gemini")
			if tt.wantError != "" {
				assert.EqualError(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, gotKey)
		})
	}
}

func TestDefaultProviders_GoogleAcceptsGeminiKey(t *testing.T) {
	assert.Equal(t, "GOOGLE_API_KEY", DefaultProviders["google"].EnvVar)
	assert.Equal(t, []string{"GEMINI_API_KEY"}, DefaultProviders["google"].AltEnvVars)

	r := NewRegistry(RegistryConfig{Getenv: fakeEnv(nil)})
	_, err := r.Provider("google")
	assert.EqualError(t, err, `GOOGLE_API_KEY or GEMINI_API_KEY environment variable not set for provider "google"`)
}

func TestRegistry_ProviderBuildsAndCaches(t *testing.T) {
	var built int
	RegisterProviderFactory("test-registry", func(cfg ClientConfig) (Provider, error) {
		built++
		mock := NewMockProvider()
		mock.ProviderName = "test-registry"
		mock.ModelName = cfg.Model
		return mock, nil
	})
	t.Cleanup(func() { delete(providerFactories, "test-registry") })

	var wrapped int
	counting := func(next Provider) Provider {
		wrapped++
		return next
	}

	r := NewRegistry(RegistryConfig{
		Providers: map[string]ProviderConfig{
			"local": {Type: "test-registry", EnvVar: "LOCAL_KEY", DefaultModel: "tiny"},
		},
		DefaultMiddleware: []Middleware{counting},
		Getenv:            fakeEnv(map[string]string{"LOCAL_KEY": "secret"}),
	})

	first, err := r.Provider("local")
	require.NoError(t, err)
	second, err := r.Provider("local/tiny")
	require.NoError(t, err)
	other, err := r.Provider("local/big")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "tiny", first.Model())
	assert.Equal(t, "big", other.Model())
	assert.Equal(t, 2, built)
	assert.Equal(t, 2, wrapped)
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry(RegistryConfig{
		Providers: map[string]ProviderConfig{"x": {Type: "missing", EnvVar: "X_KEY"}},
		Getenv:    fakeEnv(map[string]string{"X_KEY": "k"}),
	})

	_, err := r.Provider("x")

	assert.EqualError(t, err, `unknown provider type "missing" for "x"`)
}
