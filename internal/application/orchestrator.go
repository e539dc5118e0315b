// Package application coordinates feedback analysis: it aggregates judge
// records, renders prompts, calls the completion service under a retry
// policy and cleans the generated text.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahrav/go-panel/internal/domain"
	"github.com/ahrav/go-panel/internal/ports"
)

// Operation names used in logs, metrics and spans.
const (
	OperationAnalyze      = "analyze"
	OperationQuickAnalyze = "quick_analyze"
	OperationSummarize    = "summarize"
)

// Metric names recorded by the orchestrator.
const (
	MetricAnalysisRequests = "analysis_requests_total"
	MetricAnalysisDuration = "analysis_duration_seconds"
	MetricPromptTokens     = "analysis_prompt_tokens"
)

// DefaultAttemptTimeout bounds a single completion call.
const DefaultAttemptTimeout = 30 * time.Second

// CompletionOptions are passed to the completion service on every call.
type CompletionOptions struct {
	MaxTokens    int      `yaml:"max_tokens" validate:"min=0,max=32768"`
	Temperature  *float64 `yaml:"temperature" validate:"omitempty,min=0,max=2"`
	SystemPrompt string   `yaml:"system_prompt"`
}

func (c CompletionOptions) toMap() map[string]any {
	opts := make(map[string]any, 3)
	if c.MaxTokens > 0 {
		opts["max_tokens"] = c.MaxTokens
	}
	if c.Temperature != nil {
		opts["temperature"] = *c.Temperature
	}
	if c.SystemPrompt != "" {
		opts["system"] = c.SystemPrompt
	}
	return opts
}

// Orchestrator turns judge feedback into a written analysis. It holds no
// per-request state and is safe for concurrent use.
type Orchestrator struct {
	client         ports.LLMClient
	aggregator     domain.Aggregator
	composer       *PromptComposer
	resolver       *RubricResolver
	retry          *RetryPolicy
	budget         PromptBudget
	completion     CompletionOptions
	attemptTimeout time.Duration
	logger         *slog.Logger
	metrics        ports.MetricsCollector
	observer       AnalysisObserver
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAggregator replaces the default z-score aggregator.
func WithAggregator(a domain.Aggregator) OrchestratorOption {
	return func(o *Orchestrator) { o.aggregator = a }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p *RetryPolicy) OrchestratorOption {
	return func(o *Orchestrator) { o.retry = p }
}

// WithPromptBudget rejects prompts above the budget before calling the
// completion service.
func WithPromptBudget(b PromptBudget) OrchestratorOption {
	return func(o *Orchestrator) { o.budget = b }
}

// WithCompletionOptions sets the options sent with every completion call.
func WithCompletionOptions(c CompletionOptions) OrchestratorOption {
	return func(o *Orchestrator) { o.completion = c }
}

// WithAttemptTimeout bounds each completion attempt. Non-positive values
// select DefaultAttemptTimeout.
func WithAttemptTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d <= 0 {
			d = DefaultAttemptTimeout
		}
		o.attemptTimeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m ports.MetricsCollector) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithObserver sets the tracing hooks.
func WithObserver(obs AnalysisObserver) OrchestratorOption {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithRubricResolver replaces the category resolver used by Summarize.
func WithRubricResolver(r *RubricResolver) OrchestratorOption {
	return func(o *Orchestrator) { o.resolver = r }
}

// NewOrchestrator creates an orchestrator around client.
func NewOrchestrator(client ports.LLMClient, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client:         client,
		aggregator:     domain.ZScoreAggregator{},
		composer:       NewPromptComposer(),
		resolver:       NewDefaultRubricResolver(),
		retry:          NewRetryPolicy(DefaultRetryConfig()),
		attemptTimeout: DefaultAttemptTimeout,
		logger:         slog.New(slog.DiscardHandler),
		metrics:        ports.NoopMetrics{},
		observer:       noopObserver{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Model returns the completion model in use.
func (o *Orchestrator) Model() string { return o.client.GetModel() }

// Analyze aggregates records, asks the completion service for a
// comprehensive analysis of subject and returns the result together with
// the aggregated scores and comments it was based on.
func (o *Orchestrator) Analyze(ctx context.Context, subject domain.SubjectMetadata, records []domain.JudgeRecord) (result *domain.AnalysisResult, err error) {
	c := o.begin(ctx, OperationAnalyze)
	defer func() { o.end(c, err) }()

	feedback, err := o.aggregator.Aggregate(records)
	if err != nil {
		var insufficient *domain.InsufficientDataError
		if errors.As(err, &insufficient) {
			insufficient.Subject = subject.Name
		}
		return nil, err
	}

	prompt, err := o.composer.AnalysisPrompt(subject, feedback)
	if err != nil {
		return nil, err
	}

	analysis, err := o.complete(c, prompt)
	if err != nil {
		return nil, err
	}
	return domain.NewAnalysisResult(subject, analysis, feedback), nil
}

// QuickAnalyze returns a short strengths and weaknesses summary of raw
// feedback lines, joined with newlines.
func (o *Orchestrator) QuickAnalyze(ctx context.Context, feedback []string) (analysis string, err error) {
	c := o.begin(ctx, OperationQuickAnalyze)
	defer func() { o.end(c, err) }()

	prompt, err := o.composer.QuickPrompt(strings.Join(feedback, "\n"))
	if err != nil {
		return "", err
	}
	return o.complete(c, prompt)
}

// Summarize produces a report summary from a high-level comment and per
// category comments. Category labels are resolved onto the rubric first.
func (o *Orchestrator) Summarize(ctx context.Context, feedback domain.CategoryFeedback) (summary string, err error) {
	c := o.begin(ctx, OperationSummarize)
	defer func() { o.end(c, err) }()

	resolved, err := o.resolver.ResolveFeedback(feedback)
	if err != nil {
		return "", err
	}
	prompt, err := o.composer.SummaryPrompt(resolved)
	if err != nil {
		return "", err
	}
	return o.complete(c, prompt)
}

// call carries the state of one operation between begin and end.
type call struct {
	ctx       context.Context
	operation string
	start     time.Time
	usage     PromptUsage
}

func (o *Orchestrator) begin(ctx context.Context, operation string) *call {
	return &call{
		ctx:       o.observer.PreCheck(ctx, operation),
		operation: operation,
		start:     time.Now(),
	}
}

func (o *Orchestrator) end(c *call, err error) {
	elapsed := time.Since(c.start)
	status := outcome(err)

	o.metrics.RecordCounter(MetricAnalysisRequests, 1, map[string]string{
		"operation": c.operation,
		"status":    status,
	})
	o.metrics.RecordHistogram(MetricAnalysisDuration, elapsed.Seconds(), map[string]string{
		"operation": c.operation,
	})
	o.observer.PostCheck(c.ctx, c.operation, c.usage, elapsed, err)

	attrs := []any{
		"operation", c.operation,
		"status", status,
		"attempts", c.usage.Attempts,
		"prompt_tokens", c.usage.PromptTokens,
		"duration", elapsed,
	}
	switch status {
	case "success":
		o.logger.InfoContext(c.ctx, "analysis completed", attrs...)
	case "invalid_input", "insufficient_data":
		o.logger.InfoContext(c.ctx, "analysis rejected", append(attrs, "error", err)...)
	default:
		o.logger.ErrorContext(c.ctx, "analysis failed", append(attrs, "error", err)...)
	}
}

// complete runs the budget check and the completion call under the retry
// policy, then cleans the generated text.
func (o *Orchestrator) complete(c *call, prompt string) (string, error) {
	usage, err := o.budget.Check(o.client, prompt)
	c.usage = usage
	if err != nil {
		return "", err
	}
	o.metrics.RecordHistogram(MetricPromptTokens, float64(usage.PromptTokens), map[string]string{
		"operation": c.operation,
	})
	o.observer.OnPrompt(c.ctx, c.operation, usage)

	opts := o.completion.toMap()
	var raw string
	attempts, err := o.retry.Do(c.ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
		defer cancel()

		text, err := o.client.Complete(ctx, prompt, opts)
		if err != nil {
			return err
		}
		raw = text
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		o.logger.WarnContext(c.ctx, "completion rate limited, retrying",
			"operation", c.operation,
			"attempt", attempt,
			"max_attempts", o.retry.Config().MaxAttempts,
			"delay", delay,
			"error", err,
		)
		o.observer.OnRetry(c.ctx, c.operation, attempt, delay, err)
	})
	c.usage.Attempts = attempts
	if err != nil {
		return "", &domain.AnalysisUnavailableError{
			Operation: c.operation,
			Attempts:  attempts,
			Cause:     ports.NewLLMError(o.client.GetModel(), c.operation, err),
		}
	}

	text := CleanResponse(raw)
	if text == "" {
		return "", &domain.AnalysisUnavailableError{
			Operation: c.operation,
			Attempts:  attempts,
			Cause:     fmt.Errorf("completion contained no text: %w", ports.ErrInvalidResponse),
		}
	}
	return text, nil
}

// outcome maps an error to a low-cardinality status label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, domain.ErrAnalysisUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
