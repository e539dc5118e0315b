package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJudgeRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantScores  map[string]float64
		wantComment string
		wantErr     string
	}{
		{
			name:        "scores and comment",
			input:       `{"problem": 4, "solution": 3.5, "comment": "Great idea"}`,
			wantScores:  map[string]float64{"problem": 4, "solution": 3.5},
			wantComment: "Great idea",
		},
		{
			name:        "legacy feedback field",
			input:       `{"score_team": 5, "feedback": "Strong team"}`,
			wantScores:  map[string]float64{"score_team": 5},
			wantComment: "Strong team",
		},
		{
			name:        "comment takes precedence over feedback",
			input:       `{"team": 2, "comment": "primary", "feedback": "legacy"}`,
			wantScores:  map[string]float64{"team": 2},
			wantComment: "primary",
		},
		{
			name:        "missing comment decodes as empty",
			input:       `{"team": 2}`,
			wantScores:  map[string]float64{"team": 2},
			wantComment: "",
		},
		{
			name:        "null comment decodes as empty",
			input:       `{"team": 2, "comment": null}`,
			wantScores:  map[string]float64{"team": 2},
			wantComment: "",
		},
		{
			name:    "non numeric score",
			input:   `{"team": "five"}`,
			wantErr: `score "team" must be a number`,
		},
		{
			name:    "non string comment",
			input:   `{"comment": 12}`,
			wantErr: `field "comment" must be a string`,
		},
		{
			name:    "not an object",
			input:   `[1, 2]`,
			wantErr: "expected a JSON object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec JudgeRecord
			err := json.Unmarshal([]byte(tt.input), &rec)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput), "decode errors should be invalid input")
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantScores, rec.Scores)
			assert.Equal(t, tt.wantComment, rec.Comment)
		})
	}
}

func TestNewJudgeRecord_CopiesScores(t *testing.T) {
	scores := map[string]float64{"problem": 1}
	rec := NewJudgeRecord(scores, "x")

	scores["problem"] = 5

	assert.Equal(t, 1.0, rec.Scores["problem"], "record must not alias the caller's map")
}

func TestCategoryScores_Ordering(t *testing.T) {
	scores := NewCategoryScores(map[string]float64{
		"team":     1,
		"problem":  2,
		"solution": 3,
		"market":   4,
	})

	assert.Equal(t, []string{"market", "problem", "solution", "team"}, scores.Keys())
	assert.Equal(t, 4, scores.Len())

	var visited []string
	scores.Each(func(category string, _ float64) { visited = append(visited, category) })
	assert.Equal(t, scores.Keys(), visited, "Each must iterate in sorted order")

	data, err := json.Marshal(scores)
	require.NoError(t, err)
	assert.Equal(t, `{"market":4,"problem":2,"solution":3,"team":1}`, string(data))
}

func TestCategoryScores_JSONDecode(t *testing.T) {
	var scores CategoryScores
	require.NoError(t, json.Unmarshal([]byte(`{"b": 1.5, "a": 0}`), &scores))

	assert.Equal(t, []string{"a", "b"}, scores.Keys())
	v, ok := scores.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = scores.Get("missing")
	assert.False(t, ok)
}

func TestCategoryScores_ZeroValue(t *testing.T) {
	var scores CategoryScores

	assert.Equal(t, 0, scores.Len())
	assert.Empty(t, scores.Map())

	data, err := json.Marshal(scores)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestSubjectMetadata_Validate(t *testing.T) {
	assert.NoError(t, SubjectMetadata{Name: "Acme"}.Validate())

	err := SubjectMetadata{Name: "   "}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "invalid subject: name is required", err.Error())
}

func TestNewAnalysisResult_EchoesFeedback(t *testing.T) {
	feedback := AggregatedFeedback{
		Scores:   NewCategoryScores(map[string]float64{"problem": 0}),
		Comments: []string{"a", ""},
	}

	result := NewAnalysisResult(SubjectMetadata{Name: "Acme"}, "Solid pitch.", feedback)
	feedback.Comments[0] = "changed"

	assert.Equal(t, "Acme", result.SubjectName)
	assert.Equal(t, "Solid pitch.", result.Analysis)
	assert.True(t, result.AggregateScores.Equal(feedback.Scores))
	assert.Equal(t, []string{"a", ""}, result.DetailedFeedback)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"subject_name":"Acme","analysis":"Solid pitch.","aggregate_scores":{"problem":0},"detailed_feedback":["a",""]}`,
		string(data))
}
