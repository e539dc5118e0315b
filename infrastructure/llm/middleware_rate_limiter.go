package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

type rateLimitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

// RateLimitMiddleware paces outgoing calls with a token bucket so the
// service stays under the provider's published limits. The limiter is shared
// by every provider the returned middleware wraps.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next Provider) Provider {
		return &rateLimitedProvider{next: next, limiter: limiter}
	}
}

// Complete blocks until a token is available or ctx ends.
func (r *rateLimitedProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Completion{}, fmt.Errorf("rate limiter wait: %w", err)
	}
	return r.next.Complete(ctx, prompt, opts)
}

func (r *rateLimitedProvider) Name() string  { return r.next.Name() }
func (r *rateLimitedProvider) Model() string { return r.next.Model() }
