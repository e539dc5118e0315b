package llm

import (
	"context"
	"errors"
	"sync"
	"time"
)

// MockProvider is a scriptable Provider for tests.
type MockProvider struct {
	mu sync.Mutex

	ProviderName string
	ModelName    string

	Response  string
	TokensIn  int
	TokensOut int
	Err       error
	Delay     time.Duration

	// FailUntilCall makes calls 1..FailUntilCall return Err (or a generic
	// error when Err is nil); later calls succeed.
	FailUntilCall int

	calls   int
	prompts []string
	opts    []map[string]any
}

// NewMockProvider returns a provider that always succeeds.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		ProviderName: "mock",
		ModelName:    "mock-model",
		Response:     "mock response",
		TokensIn:     10,
		TokensOut:    20,
	}
}

// Complete implements Provider.
func (m *MockProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.prompts = append(m.prompts, prompt)
	m.opts = append(m.opts, opts)
	delay, err := m.Delay, m.Err
	failUntil := m.FailUntilCall
	resp := Completion{
		Text:      m.Response,
		TokensIn:  m.TokensIn,
		TokensOut: m.TokensOut,
		Provider:  m.ProviderName,
		Model:     m.ModelName,
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Completion{}, ctx.Err()
		}
	}

	if failUntil > 0 {
		if call <= failUntil {
			if err == nil {
				err = errors.New("simulated failure")
			}
			return Completion{}, err
		}
		return resp, nil
	}
	if err != nil {
		return Completion{}, err
	}
	return resp, nil
}

// Name implements Provider.
func (m *MockProvider) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ProviderName
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ModelName
}

// Calls returns how many times Complete ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns every prompt received, in order.
func (m *MockProvider) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastOptions returns the options passed to the most recent call.
func (m *MockProvider) LastOptions() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.opts) == 0 {
		return nil
	}
	return m.opts[len(m.opts)-1]
}
