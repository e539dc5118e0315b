package llm

import (
	"context"
	"time"
)

// DefaultRequestTimeout bounds a single completion call.
const DefaultRequestTimeout = 30 * time.Second

type timeoutProvider struct {
	next    Provider
	timeout time.Duration
}

// TimeoutMiddleware gives every call its own deadline. A non-positive
// timeout selects DefaultRequestTimeout. An earlier deadline already on the
// incoming context still wins.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return func(next Provider) Provider {
		return &timeoutProvider{next: next, timeout: timeout}
	}
}

func (t *timeoutProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, prompt, opts)
}

func (t *timeoutProvider) Name() string  { return t.next.Name() }
func (t *timeoutProvider) Model() string { return t.next.Model() }
