package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-panel/internal/domain"
)

// Environment variables that override the configuration file.
const (
	EnvProvider = "PANEL_PROVIDER"
	EnvModel    = "PANEL_MODEL"
	EnvAddr     = "PANEL_ADDR"
	EnvLogLevel = "PANEL_LOG_LEVEL"
)

// Config is the complete service configuration. Start from DefaultConfig
// and override what you need; LoadConfig does exactly that with a YAML file
// and the environment.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`
	// Log selects the log level and output format.
	Log LogConfig `yaml:"log"`
	// LLM selects the completion provider and its client-side protections.
	LLM LLMConfig `yaml:"llm"`
	// Analysis tunes aggregation, retries and prompts.
	Analysis AnalysisConfig `yaml:"analysis"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr" validate:"required,hostname_port"`
	// ReadTimeout bounds reading a request, body included.
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout bounds writing a response. It must leave room for the
	// completion call and its retries.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"min=1"`
	// CORSOrigins lists the allowed browser origins. Empty disables CORS.
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,required"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// LLMConfig configures the completion service.
type LLMConfig struct {
	// Provider is "provider" or "provider/model", e.g. "groq/llama-3.1-8b-instant".
	Provider string `yaml:"provider" validate:"required,provider"`
	// Fallback is an optional second provider tried when the first fails.
	Fallback string `yaml:"fallback" validate:"omitempty,provider"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	// RequestTimeout bounds the provider HTTP client.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// RateLimit is the allowed requests per second. Zero disables pacing.
	RateLimit float64 `yaml:"rate_limit" validate:"min=0"`
	// Burst is the token bucket size used with RateLimit.
	Burst int `yaml:"burst" validate:"min=0"`
	// CircuitBreaker stops calling a failing provider for a while.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	// TokenEstimator is "chars" or "words".
	TokenEstimator string `yaml:"token_estimator" validate:"omitempty,oneof=chars words"`
}

// CircuitBreakerConfig configures the provider circuit breaker.
type CircuitBreakerConfig struct {
	// MaxFailures opens the breaker after that many consecutive failures.
	// Zero disables the breaker.
	MaxFailures int `yaml:"max_failures" validate:"min=0"`
	// Cooldown is how long the breaker stays open.
	Cooldown time.Duration `yaml:"cooldown"`
}

// AnalysisConfig tunes the orchestrator.
type AnalysisConfig struct {
	Aggregation     string            `yaml:"aggregation" validate:"aggregation"`
	Retry           RetryConfig       `yaml:"retry"`
	Budget          PromptBudget      `yaml:"budget"`
	Completion      CompletionOptions `yaml:"completion"`
	AttemptTimeout  time.Duration     `yaml:"attempt_timeout"`
	RubricThreshold float64           `yaml:"rubric_threshold" validate:"gt=0,lte=1"`
}

// DefaultConfig returns a configuration that runs against Groq with the
// documented retry policy.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		LLM: LLMConfig{
			Provider:       "groq",
			RequestTimeout: 60 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				MaxFailures: 5,
				Cooldown:    30 * time.Second,
			},
			TokenEstimator: "chars",
		},
		Analysis: AnalysisConfig{
			Aggregation: string(domain.AggregationZScore),
			Retry:       DefaultRetryConfig(),
			Budget:      PromptBudget{MaxPromptTokens: 6000},
			Completion: CompletionOptions{
				MaxTokens: 1024,
			},
			AttemptTimeout:  DefaultAttemptTimeout,
			RubricThreshold: DefaultRubricThreshold,
		},
	}
}

// LoadConfig reads path over DefaultConfig, applies environment overrides
// looked up through getenv and validates the result. An empty path skips the
// file and a nil getenv uses os.Getenv.
func LoadConfig(path string, getenv func(string) string) (*Config, error) {
	if path == "" {
		return LoadConfigFromReader(nil, getenv)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return LoadConfigFromReader(bytes.NewReader(data), getenv)
}

// LoadConfigFromReader is LoadConfig for an already open source. r may be
// nil and getenv defaults to os.Getenv.
func LoadConfigFromReader(r io.Reader, getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	if r != nil {
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}
	cfg.ApplyEnv(getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PANEL_* variables. PANEL_MODEL replaces
// the model part of the provider spec.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvProvider); v != "" {
		c.LLM.Provider = v
	}
	if v := getenv(EnvModel); v != "" {
		provider, _, _ := strings.Cut(c.LLM.Provider, "/")
		c.LLM.Provider = provider + "/" + v
	}
	if v := getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate checks struct tags and the custom provider and aggregation
// rules, reporting every violation at once.
func (c *Config) Validate() error {
	v, err := newConfigValidator()
	if err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", describeValidationErrors(err))
	}
	return nil
}

// OrchestratorOptions translates the analysis settings into orchestrator
// options.
func (c AnalysisConfig) OrchestratorOptions() ([]OrchestratorOption, error) {
	aggregator, err := domain.NewAggregator(domain.AggregationMethod(c.Aggregation))
	if err != nil {
		return nil, err
	}
	return []OrchestratorOption{
		WithAggregator(aggregator),
		WithRetryPolicy(NewRetryPolicy(c.Retry)),
		WithPromptBudget(c.Budget),
		WithCompletionOptions(c.Completion),
		WithAttemptTimeout(c.AttemptTimeout),
		WithRubricResolver(NewRubricResolver(domain.RubricCategories, c.RubricThreshold)),
	}, nil
}
