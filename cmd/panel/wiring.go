package main

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-panel/infrastructure/llm"
	"github.com/ahrav/go-panel/infrastructure/middleware"
	"github.com/ahrav/go-panel/internal/application"
	"github.com/ahrav/go-panel/internal/ports"
)

// newLogger builds the slog logger selected by cfg.
func newLogger(cfg application.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

// buildClient assembles the completion client:
//
//	tracing -> metrics -> rate limit -> [fallback] -> circuit breaker -> timeout -> provider
//
// Each provider gets its own breaker so a failing primary does not trip the
// fallback.
func buildClient(cfg application.LLMConfig, metrics *middleware.PrometheusMetrics, logger *slog.Logger, getenv func(string) string) (ports.LLMClient, error) {
	providers := maps.Clone(llm.DefaultProviders)
	if cfg.BaseURL != "" {
		name, _, _ := strings.Cut(cfg.Provider, "/")
		if p, ok := providers[name]; ok {
			p.BaseURL = cfg.BaseURL
			providers[name] = p
		}
	}

	registry := llm.NewRegistry(llm.RegistryConfig{
		Providers:      providers,
		DefaultTimeout: cfg.RequestTimeout,
		Getenv:         getenv,
	})

	var circuitObserver llm.CircuitObserver
	if metrics != nil {
		circuitObserver = metrics.CircuitObserver()
	}
	perProvider := func(p llm.Provider) llm.Provider {
		mw := make([]llm.Middleware, 0, 2)
		if cfg.CircuitBreaker.MaxFailures > 0 {
			mw = append(mw, llm.CircuitBreakerMiddleware(cfg.CircuitBreaker.MaxFailures, cfg.CircuitBreaker.Cooldown, circuitObserver))
		}
		mw = append(mw, llm.TimeoutMiddleware(cfg.RequestTimeout))
		return llm.Chain(p, mw...)
	}

	primary, err := registry.Provider(cfg.Provider)
	if err != nil {
		return nil, err
	}
	provider := perProvider(primary)

	if cfg.Fallback != "" {
		secondary, err := registry.Provider(cfg.Fallback)
		if err != nil {
			return nil, fmt.Errorf("fallback: %w", err)
		}
		provider = llm.NewFallbackProvider(provider, perProvider(secondary), logger)
	}

	estimator, err := llm.NewTokenEstimator(cfg.TokenEstimator)
	if err != nil {
		return nil, err
	}

	var collector ports.MetricsCollector = ports.NoopMetrics{}
	if metrics != nil {
		collector = metrics
	}
	mw := []llm.Middleware{
		llm.TracingMiddleware(nil),
		llm.MetricsMiddleware(collector),
	}
	if cfg.RateLimit > 0 {
		mw = append(mw, llm.RateLimitMiddleware(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1)))
	}

	return llm.NewClientFromProvider(provider, estimator, mw...), nil
}
