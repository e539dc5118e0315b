package application

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ahrav/go-panel/internal/ports"
)

// Default retry settings for completion calls.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 60 * time.Second
	DefaultJitterUnit  = 1 * time.Second
)

// RetryConfig controls how transient completion failures are retried.
type RetryConfig struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int `yaml:"max_attempts" validate:"min=1,max=10"`
	// BaseDelay is doubled after every attempt.
	BaseDelay time.Duration `yaml:"base_delay"`
	// MaxDelay caps a single wait.
	MaxDelay time.Duration `yaml:"max_delay"`
	// JitterUnit scales the uniform [0, 1) jitter added to each wait.
	JitterUnit time.Duration `yaml:"jitter_unit"`
}

// DefaultRetryConfig returns five attempts with 1s exponential backoff,
// up to 1s of jitter and a 60s cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		JitterUnit:  DefaultJitterUnit,
	}
}

// RetryPolicy retries an operation while it fails with a transient error,
// as reported by ports.IsTransient. Any other error ends the loop at once.
type RetryPolicy struct {
	config RetryConfig
	sleep  func(context.Context, time.Duration) error
	jitter func() float64
}

// RetryOption customizes a RetryPolicy.
type RetryOption func(*RetryPolicy)

// WithSleep replaces the wait between attempts. Tests use it to observe
// delays without waiting for them.
func WithSleep(sleep func(context.Context, time.Duration) error) RetryOption {
	return func(p *RetryPolicy) { p.sleep = sleep }
}

// WithJitterSource replaces the [0, 1) random source.
func WithJitterSource(jitter func() float64) RetryOption {
	return func(p *RetryPolicy) { p.jitter = jitter }
}

// NewRetryPolicy creates a policy. A MaxAttempts below one is raised to one.
func NewRetryPolicy(config RetryConfig, opts ...RetryOption) *RetryPolicy {
	config.MaxAttempts = max(config.MaxAttempts, 1)
	p := &RetryPolicy{
		config: config,
		sleep:  sleepContext,
		//nolint:gosec // G404: jitter timing does not need a secure source.
		jitter: rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the policy settings.
func (p *RetryPolicy) Config() RetryConfig { return p.config }

// Delay returns the wait after the given zero-based attempt:
// min(BaseDelay*2^attempt + U[0,1)*JitterUnit, MaxDelay).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	backoff := float64(p.config.BaseDelay) * math.Pow(2, float64(attempt))
	delay := backoff + p.jitter()*float64(p.config.JitterUnit)
	if p.config.MaxDelay > 0 && delay > float64(p.config.MaxDelay) {
		return p.config.MaxDelay
	}
	if delay > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(delay)
}

// RetryNotify is called before each wait with the attempt that just failed
// (one-based), the wait and the error.
type RetryNotify func(attempt int, delay time.Duration, err error)

// Do runs fn until it succeeds, fails permanently or MaxAttempts is
// reached. It returns the number of attempts made and the last error.
// A server supplied retry hint lengthens the wait but never past MaxDelay.
func (p *RetryPolicy) Do(ctx context.Context, fn func(context.Context) error, notify RetryNotify) (int, error) {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		if !ports.IsTransient(err) || attempt+1 >= p.config.MaxAttempts {
			return attempt + 1, err
		}

		delay := p.Delay(attempt)
		if hint, ok := ports.RetryAfterHint(err); ok && hint > delay {
			delay = hint
			if p.config.MaxDelay > 0 {
				delay = min(delay, p.config.MaxDelay)
			}
		}
		if notify != nil {
			notify(attempt+1, delay, err)
		}
		if werr := p.sleep(ctx, delay); werr != nil {
			return attempt + 1, fmt.Errorf("retry wait interrupted: %w (last error: %w)", werr, err)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
