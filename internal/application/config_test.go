package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/testutils"
)

func noEnv(string) string { return "" }

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, string(domain.AggregationZScore), cfg.Analysis.Aggregation)
	assert.Equal(t, DefaultRetryConfig(), cfg.Analysis.Retry)
	assert.Equal(t, DefaultAttemptTimeout, cfg.Analysis.AttemptTimeout)
	assert.InDelta(t, DefaultRubricThreshold, cfg.Analysis.RubricThreshold, 1e-12)
}

func TestLoadConfigFromReader(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		verify  func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty document keeps defaults",
			yaml: "",
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "overrides merge with defaults",
			yaml: `
server:
  addr: "127.0.0.1:9090"
  cors_origins: ["https://panel.example.com"]
log:
  level: debug
  format: json
llm:
  provider: openai/gpt-4o-mini
  fallback: groq
  rate_limit: 2.5
  burst: 3
  circuit_breaker:
    max_failures: 3
    cooldown: 10s
analysis:
  aggregation: mean
  retry:
    max_attempts: 3
    base_delay: 500ms
  budget:
    max_prompt_tokens: 2000
  completion:
    max_tokens: 512
    temperature: 0.2
    system_prompt: "You are a startup mentor."
  attempt_timeout: 45s
`,
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)
				assert.Equal(t, []string{"https://panel.example.com"}, cfg.Server.CORSOrigins)
				assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout, "unset fields keep defaults")

				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Format)

				assert.Equal(t, "openai/gpt-4o-mini", cfg.LLM.Provider)
				assert.Equal(t, "groq", cfg.LLM.Fallback)
				assert.InDelta(t, 2.5, cfg.LLM.RateLimit, 1e-12)
				assert.Equal(t, 3, cfg.LLM.Burst)
				assert.Equal(t, 3, cfg.LLM.CircuitBreaker.MaxFailures)
				assert.Equal(t, 10*time.Second, cfg.LLM.CircuitBreaker.Cooldown)

				assert.Equal(t, "mean", cfg.Analysis.Aggregation)
				assert.Equal(t, 3, cfg.Analysis.Retry.MaxAttempts)
				assert.Equal(t, 500*time.Millisecond, cfg.Analysis.Retry.BaseDelay)
				assert.Equal(t, DefaultMaxDelay, cfg.Analysis.Retry.MaxDelay)
				assert.Equal(t, 2000, cfg.Analysis.Budget.MaxPromptTokens)
				assert.Equal(t, 512, cfg.Analysis.Completion.MaxTokens)
				require.NotNil(t, cfg.Analysis.Completion.Temperature)
				assert.InDelta(t, 0.2, *cfg.Analysis.Completion.Temperature, 1e-12)
				assert.Equal(t, "You are a startup mentor.", cfg.Analysis.Completion.SystemPrompt)
				assert.Equal(t, 45*time.Second, cfg.Analysis.AttemptTimeout)
			},
		},
		{
			name: "environment wins over file",
			yaml: `
llm:
  provider: openai
server:
  addr: ":7000"
`,
			env: map[string]string{
				EnvProvider: "groq",
				EnvModel:    "llama-3.3-70b-versatile",
				EnvAddr:     ":9999",
				EnvLogLevel: "WARN",
			},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "groq/llama-3.3-70b-versatile", cfg.LLM.Provider)
				assert.Equal(t, ":9999", cfg.Server.Addr)
				assert.Equal(t, "warn", cfg.Log.Level)
			},
		},
		{
			name: "model override replaces configured model",
			yaml: `
llm:
  provider: openai/gpt-4o
`,
			env: map[string]string{EnvModel: "gpt-4o-mini"},
			verify: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "openai/gpt-4o-mini", cfg.LLM.Provider)
			},
		},
		{
			name:    "unknown field",
			yaml:    "llm:\n  providr: groq\n",
			wantErr: "failed to parse config",
		},
		{
			name:    "malformed yaml",
			yaml:    "server: [unclosed",
			wantErr: "failed to parse config",
		},
		{
			name:    "bad duration",
			yaml:    "analysis:\n  attempt_timeout: soon\n",
			wantErr: "failed to parse config",
		},
		{
			name:    "unknown aggregation",
			yaml:    "analysis:\n  aggregation: median\n",
			wantErr: "analysis.aggregation failed aggregation (got median)",
		},
		{
			name:    "uppercase provider",
			yaml:    "llm:\n  provider: Groq\n",
			wantErr: "llm.provider failed provider",
		},
		{
			name:    "provider with empty model",
			yaml:    "llm:\n  provider: \"groq/\"\n",
			wantErr: "llm.provider failed provider",
		},
		{
			name:    "log level",
			yaml:    "log:\n  level: verbose\n",
			wantErr: "log.level failed oneof=debug info warn error (got verbose)",
		},
		{
			name:    "retry attempts out of range",
			yaml:    "analysis:\n  retry:\n    max_attempts: 0\n",
			wantErr: "analysis.retry.max_attempts failed min=1",
		},
		{
			name:    "rubric threshold",
			yaml:    "analysis:\n  rubric_threshold: 1.5\n",
			wantErr: "analysis.rubric_threshold failed lte=1",
		},
		{
			name:    "listen address",
			yaml:    "server:\n  addr: localhost\n",
			wantErr: "server.addr failed hostname_port",
		},
		{
			name:    "temperature",
			yaml:    "analysis:\n  completion:\n    temperature: 3\n",
			wantErr: "analysis.completion.temperature failed max=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			getenv := noEnv
			if tt.env != nil {
				getenv = envMap(tt.env)
			}

			cfg, err := LoadConfigFromReader(strings.NewReader(tt.yaml), getenv)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadConfigFromReader_ReportsEveryViolation(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(`
log:
  format: xml
analysis:
  aggregation: median
`), noEnv)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "log.format")
	assert.Contains(t, err.Error(), "analysis.aggregation")
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  aggregation: mean\n"), 0o600))

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "mean", cfg.Analysis.Aggregation)

	cfg, err = LoadConfig(path, func(key string) string {
		if key == EnvAddr {
			return ":9191"
		}
		return ""
	})
	require.NoError(t, err)
	assert.Equal(t, "mean", cfg.Analysis.Aggregation)
	assert.Equal(t, ":9191", cfg.Server.Addr)

	cfg, err = LoadConfig("", func(string) string { return "" })
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Analysis.Aggregation, cfg.Analysis.Aggregation)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestAnalysisConfig_OrchestratorOptions(t *testing.T) {
	cfg := DefaultConfig().Analysis
	cfg.Aggregation = string(domain.AggregationMean)
	cfg.Retry.MaxAttempts = 2
	cfg.Budget.MaxPromptTokens = 100
	cfg.AttemptTimeout = 5 * time.Second
	cfg.RubricThreshold = 0.9

	opts, err := cfg.OrchestratorOptions()
	require.NoError(t, err)

	o := NewOrchestrator(testutils.NewMockLLMClient("test-model"), opts...)
	assert.Equal(t, domain.MeanAggregator{}, o.aggregator)
	assert.Equal(t, 2, o.retry.Config().MaxAttempts)
	assert.Equal(t, 100, o.budget.MaxPromptTokens)
	assert.Equal(t, 5*time.Second, o.attemptTimeout)
	assert.InDelta(t, 0.9, o.resolver.threshold, 1e-12)

	cfg.Aggregation = "median"
	_, err = cfg.OrchestratorOptions()
	assert.Error(t, err)
}

func TestValidateProviderSpec(t *testing.T) {
	type target struct {
		Provider string `validate:"provider"`
	}

	v, err := newConfigValidator()
	require.NoError(t, err)

	tests := []struct {
		spec  string
		valid bool
	}{
		{"groq", true},
		{"groq/llama-3.1-8b-instant", true},
		{"openai/gpt-4o-mini", true},
		{"google/models/gemini-2.0-flash", true},
		{"", false},
		{"/gpt-4o", false},
		{"groq/", false},
		{"Groq", false},
		{"my provider", false},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			err := v.Struct(target{Provider: tt.spec})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
