package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-panel/internal/ports"
)

// recordSleeps returns a sleep func that records every wait instead of
// blocking.
func recordSleeps(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := NewRetryPolicy(DefaultRetryConfig(), WithJitterSource(func() float64 { return 0.5 }))

	assert.Equal(t, 1500*time.Millisecond, p.Delay(0))
	assert.Equal(t, 2500*time.Millisecond, p.Delay(1))
	assert.Equal(t, 4500*time.Millisecond, p.Delay(2))
	assert.Equal(t, 8500*time.Millisecond, p.Delay(3))
	assert.Equal(t, 60*time.Second, p.Delay(6), "capped at MaxDelay")
	assert.Equal(t, 60*time.Second, p.Delay(200), "no overflow for large attempts")
}

func TestRetryPolicy_DelayBounds(t *testing.T) {
	cfg := DefaultRetryConfig()
	for _, jitter := range []float64{0, 0.25, 0.999} {
		p := NewRetryPolicy(cfg, WithJitterSource(func() float64 { return jitter }))
		for attempt := range 5 {
			base := cfg.BaseDelay * time.Duration(1<<attempt)
			d := p.Delay(attempt)
			assert.GreaterOrEqual(t, d, base)
			assert.Less(t, d, base+cfg.JitterUnit)
		}
	}
}

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(DefaultRetryConfig(), WithSleep(recordSleeps(&delays)))

	calls := 0
	attempts, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls <= 2 {
			return ports.NewTransientServiceError("groq", errors.New("quota exceeded"))
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	require.Len(t, delays, 2)
	assert.LessOrEqual(t, delays[0], delays[1])
}

func TestRetryPolicy_NonTransientFailsImmediately(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(DefaultRetryConfig(), WithSleep(recordSleeps(&delays)))
	permanent := errors.New("invalid api key")

	attempts, err := p.Do(context.Background(), func(context.Context) error { return permanent }, nil)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, delays)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	var notified []int
	p := NewRetryPolicy(DefaultRetryConfig(),
		WithSleep(recordSleeps(&delays)),
		WithJitterSource(func() float64 { return 0 }),
	)

	attempts, err := p.Do(context.Background(), func(context.Context) error {
		return fmt.Errorf("call: %w", ports.ErrRateLimited)
	}, func(attempt int, _ time.Duration, _ error) {
		notified = append(notified, attempt)
	})

	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Equal(t, DefaultMaxAttempts, attempts)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}, delays)
	assert.Equal(t, []int{1, 2, 3, 4}, notified)
}

func TestRetryPolicy_RetryAfterHint(t *testing.T) {
	var delays []time.Duration
	p := NewRetryPolicy(RetryConfig{MaxAttempts: 2, BaseDelay: time.Second, MaxDelay: 10 * time.Second},
		WithSleep(recordSleeps(&delays)),
		WithJitterSource(func() float64 { return 0 }),
	)

	hint := 5 * time.Second
	huge := time.Hour
	calls := 0
	_, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &ports.TransientServiceError{Service: "groq", Err: errors.New("slow down"), RetryAfter: &hint}
		}
		return nil
	}, nil)
	require.NoError(t, err)

	calls = 0
	_, err = p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &ports.TransientServiceError{Service: "groq", Err: errors.New("slow down"), RetryAfter: &huge}
		}
		return nil
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, delays)
}

func TestRetryPolicy_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewRetryPolicy(DefaultRetryConfig(), WithSleep(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	attempts, err := p.Do(ctx, func(context.Context) error { return ports.ErrRateLimited }, nil)

	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ports.ErrRateLimited)
}

func TestRetryPolicy_RealSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	p := NewRetryPolicy(RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour})

	start := time.Now()
	_, err := p.Do(ctx, func(context.Context) error { return ports.ErrRateLimited }, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewRetryPolicy_MinimumOneAttempt(t *testing.T) {
	p := NewRetryPolicy(RetryConfig{})
	calls := 0

	attempts, err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return ports.ErrRateLimited
	}, nil)

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}
