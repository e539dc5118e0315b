package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the provider while the
// breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is the breaker state.
type CircuitState int

const (
	// StateClosed passes every call through.
	StateClosed CircuitState = iota
	// StateOpen rejects calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a single probe through.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitObserver is notified of breaker transitions.
type CircuitObserver func(provider string, from, to CircuitState)

// CircuitBreaker opens after maxFailures consecutive counted failures and
// probes again once cooldown has passed. Rate limit errors and caller
// cancellations are not counted.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       CircuitState
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	probing     bool
	now         func() time.Time
	observer    CircuitObserver
	name        string
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// allow reports whether a call may proceed and moves an expired open
// breaker to half-open.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
		return true
	case StateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if !countsAsFailure(err) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.observer != nil {
		cb.observer(cb.name, from, to)
	}
}

func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	var perr *ProviderError
	if errors.As(err, &perr) && perr.IsTransient() {
		return false
	}
	return !errors.Is(err, context.Canceled)
}

type circuitBreakerProvider struct {
	next Provider
	cb   *CircuitBreaker
}

// CircuitBreakerMiddleware wraps providers with a shared breaker. observer
// may be nil.
func CircuitBreakerMiddleware(maxFailures int, cooldown time.Duration, observer CircuitObserver) Middleware {
	cb := NewCircuitBreaker(maxFailures, cooldown)
	cb.observer = observer
	return CircuitBreakerWith(cb)
}

// CircuitBreakerWith wraps providers with an existing breaker.
func CircuitBreakerWith(cb *CircuitBreaker) Middleware {
	return func(next Provider) Provider {
		cb.mu.Lock()
		if cb.name == "" {
			cb.name = next.Name()
		}
		cb.mu.Unlock()
		return &circuitBreakerProvider{next: next, cb: cb}
	}
}

func (c *circuitBreakerProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	if !c.cb.allow() {
		return Completion{}, NewProviderError(c.next.Name(), ErrorTypeServerError, 0, "", ErrCircuitOpen)
	}
	completion, err := c.next.Complete(ctx, prompt, opts)
	c.cb.record(err)
	return completion, err
}

func (c *circuitBreakerProvider) Name() string  { return c.next.Name() }
func (c *circuitBreakerProvider) Model() string { return c.next.Model() }
