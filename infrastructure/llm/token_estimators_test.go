package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharacterEstimator(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		text  string
		want  int
	}{
		{name: "empty", ratio: 4, text: "", want: 0},
		{name: "short text rounds up", ratio: 4, text: "hi", want: 1},
		{name: "exact multiple", ratio: 4, text: "abcdefgh", want: 2},
		{name: "counts runes not bytes", ratio: 4, text: "héllo wörld", want: 3},
		{name: "invalid ratio uses default", ratio: 0, text: "abcdefghij", want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewCharacterEstimator(tt.ratio).EstimateTokens(tt.text))
		})
	}
}

func TestWordEstimator(t *testing.T) {
	e := NewWordEstimator(0)

	assert.Equal(t, 0, e.EstimateTokens("   "))
	assert.Equal(t, 3, e.EstimateTokens("the pitch was strong overall"))
	assert.Equal(t, 4, NewWordEstimator(1).EstimateTokens("a b\tc\nd"))
}

func TestNewTokenEstimator(t *testing.T) {
	chars, err := NewTokenEstimator("")
	require.NoError(t, err)
	assert.IsType(t, &CharacterEstimator{}, chars)

	words, err := NewTokenEstimator("words")
	require.NoError(t, err)
	assert.IsType(t, &WordEstimator{}, words)

	_, err = NewTokenEstimator("tiktoken")
	assert.Error(t, err)
}
