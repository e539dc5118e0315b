package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Default ratios for English prose.
const (
	DefaultCharsPerToken = 4.0
	DefaultTokensPerWord = 0.75
)

// CharacterEstimator approximates tokens from the rune count.
type CharacterEstimator struct{ charsPerToken float64 }

// NewCharacterEstimator returns an estimator using charsPerToken, or the
// default ratio when it is not positive.
func NewCharacterEstimator(charsPerToken float64) *CharacterEstimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return &CharacterEstimator{charsPerToken: charsPerToken}
}

// EstimateTokens rounds up so that any non-empty text counts as at least
// one token.
func (e *CharacterEstimator) EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	tokens := int(float64(n) / e.charsPerToken)
	if float64(tokens)*e.charsPerToken < float64(n) {
		tokens++
	}
	return tokens
}

// WordEstimator approximates tokens from whitespace separated words.
type WordEstimator struct{ tokensPerWord float64 }

// NewWordEstimator returns an estimator using tokensPerWord, or the default
// ratio when it is not positive.
func NewWordEstimator(tokensPerWord float64) *WordEstimator {
	if tokensPerWord <= 0 {
		tokensPerWord = DefaultTokensPerWord
	}
	return &WordEstimator{tokensPerWord: tokensPerWord}
}

// EstimateTokens implements TokenEstimator.
func (e *WordEstimator) EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * e.tokensPerWord)
}

// NewTokenEstimator selects an estimator by name: "chars" or "words".
func NewTokenEstimator(kind string) (TokenEstimator, error) {
	switch kind {
	case "", "chars":
		return NewCharacterEstimator(DefaultCharsPerToken), nil
	case "words":
		return NewWordEstimator(DefaultTokensPerWord), nil
	default:
		return nil, fmt.Errorf("unknown token estimator %q", kind)
	}
}
