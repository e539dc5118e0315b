// Package testutils provides test doubles and fixtures shared by the
// application and transport tests.
package testutils

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ahrav/go-panel/internal/ports"
)

// Default responses returned by MockLLMClient for each prompt variant.
const (
	DefaultAnalysisResponse = "**Strengths:** The problem is well understood.\n\n**Weaknesses:** Market fit is unclear."
	DefaultQuickResponse    = "*Strength:* clear idea. *Improve:* execution plan."
	DefaultSummaryResponse  = "Judges agree the team is strong; the startup should sharpen its business model."
	DefaultFallbackResponse = "This is a standard response for testing purposes."
)

// MockResponse maps prompts containing Pattern to Response.
type MockResponse struct {
	// Pattern is matched case-insensitively as a substring of the prompt.
	Pattern string
	// Response is returned for matching prompts.
	Response string
}

// Call records one Complete invocation.
type Call struct {
	Prompt  string
	Options map[string]any
}

// MockLLMClient implements ports.LLMClient with deterministic, pattern
// based responses and an optional script of errors returned first. It is
// safe for concurrent use.
type MockLLMClient struct {
	mu        sync.Mutex
	model     string
	responses []MockResponse
	errs      []error
	calls     []Call
}

var _ ports.LLMClient = (*MockLLMClient)(nil)

// NewMockLLMClient creates a client answering each prompt variant with its
// default response.
func NewMockLLMClient(model string) *MockLLMClient {
	m := &MockLLMClient{model: model}
	m.setupDefaultResponses()
	return m
}

func (m *MockLLMClient) setupDefaultResponses() {
	m.responses = []MockResponse{
		{Pattern: "comprehensive analysis", Response: DefaultAnalysisResponse},
		{Pattern: "quick analysis", Response: DefaultQuickResponse},
		{Pattern: "actionable insights", Response: DefaultSummaryResponse},
	}
}

// AddResponse registers a response. Later patterns take precedence.
func (m *MockLLMClient) AddResponse(r MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append([]MockResponse{r}, m.responses...)
}

// FailWith queues errors returned, in order, by the next calls.
func (m *MockLLMClient) FailWith(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
}

// Complete implements ports.LLMClient.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", errors.New("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, Call{Prompt: prompt, Options: options})
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return "", err
	}

	lower := strings.ToLower(prompt)
	for _, r := range m.responses {
		if strings.Contains(lower, strings.ToLower(r.Pattern)) {
			return r.Response, nil
		}
	}
	return DefaultFallbackResponse, nil
}

// EstimateTokens implements ports.LLMClient with a four characters per
// token estimate, at least one token for non-empty text.
func (m *MockLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return max(len(text)/4, 1), nil
}

// GetModel implements ports.LLMClient.
func (m *MockLLMClient) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// Calls returns every recorded call in order.
func (m *MockLLMClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns the number of Complete invocations.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears calls, queued errors and custom responses.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.errs = nil
	m.setupDefaultResponses()
}
