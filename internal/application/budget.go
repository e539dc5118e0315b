package application

import (
	"fmt"

	"github.com/ahrav/go-panel/internal/domain"
)

// TokenEstimator approximates prompt size. ports.LLMClient satisfies it.
type TokenEstimator interface {
	EstimateTokens(text string) (int, error)
}

// PromptBudget caps the size of a single prompt so an oversized request is
// rejected before it costs a completion call.
type PromptBudget struct {
	// MaxPromptTokens is the estimated token limit. Zero means unlimited.
	MaxPromptTokens int `yaml:"max_prompt_tokens" validate:"min=0"`
}

// PromptUsage describes one operation's consumption of the completion
// service.
type PromptUsage struct {
	PromptTokens    int
	MaxPromptTokens int
	Attempts        int
}

// Remaining returns the tokens left under the limit, or -1 when unlimited.
func (u PromptUsage) Remaining() int {
	if u.MaxPromptTokens <= 0 {
		return -1
	}
	return u.MaxPromptTokens - u.PromptTokens
}

// Check estimates prompt and compares it with the limit. The returned usage
// is filled in even when the budget is exceeded.
func (b PromptBudget) Check(estimator TokenEstimator, prompt string) (PromptUsage, error) {
	usage := PromptUsage{MaxPromptTokens: b.MaxPromptTokens}

	tokens, err := estimator.EstimateTokens(prompt)
	if err != nil {
		return usage, fmt.Errorf("failed to estimate prompt tokens: %w", err)
	}
	usage.PromptTokens = tokens

	if b.MaxPromptTokens > 0 && tokens > b.MaxPromptTokens {
		return usage, domain.NewInvalidInputError("prompt",
			fmt.Sprintf("feedback is too long: about %d tokens, limit is %d", tokens, b.MaxPromptTokens))
	}
	return usage, nil
}
