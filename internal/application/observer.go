package application

import (
	"context"
	"time"
)

// AnalysisObserver provides observability hooks around one orchestrator
// operation. Implementations can add tracing without coupling it to the
// analysis logic.
type AnalysisObserver interface {
	// PreCheck is called when an operation starts. The returned context is
	// used for the rest of the operation.
	PreCheck(ctx context.Context, operation string) context.Context

	// OnPrompt is called once the prompt passed the budget check.
	OnPrompt(ctx context.Context, operation string, usage PromptUsage)

	// OnRetry is called before waiting to retry a transient failure.
	OnRetry(ctx context.Context, operation string, attempt int, delay time.Duration, err error)

	// PostCheck is called when the operation ends, successfully or not.
	PostCheck(ctx context.Context, operation string, usage PromptUsage, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) PreCheck(ctx context.Context, _ string) context.Context { return ctx }

func (noopObserver) OnPrompt(context.Context, string, PromptUsage) {}

func (noopObserver) OnRetry(context.Context, string, int, time.Duration, error) {}

func (noopObserver) PostCheck(context.Context, string, PromptUsage, time.Duration, error) {}
