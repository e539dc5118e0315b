package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// Comment field names accepted in a judge record. "feedback" is the
// legacy name used by older judging forms.
const (
	commentField       = "comment"
	legacyCommentField = "feedback"
)

// JudgeRecord is one judge's submission for one subject: a score per
// category plus a free-text comment. Records are treated as immutable once
// built; use NewJudgeRecord to avoid sharing the caller's map.
type JudgeRecord struct {
	Scores  map[string]float64
	Comment string
}

// NewJudgeRecord copies scores into a new JudgeRecord.
func NewJudgeRecord(scores map[string]float64, comment string) JudgeRecord {
	return JudgeRecord{Scores: maps.Clone(scores), Comment: comment}
}

// UnmarshalJSON decodes a flat object where every numeric member is a
// category score and "comment" (or "feedback") carries the judge's text.
//
//	{"problem": 4, "solution": 3, "comment": "Great idea"}
func (r *JudgeRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewInvalidInputError("judge_record", "expected a JSON object")
	}

	verr := NewInvalidInputError("judge_record")
	rec := JudgeRecord{Scores: make(map[string]float64, len(raw))}

	for _, key := range slices.Sorted(maps.Keys(raw)) {
		val := raw[key]
		if key == commentField || key == legacyCommentField {
			if isJSONNull(val) {
				continue
			}
			var comment string
			if err := json.Unmarshal(val, &comment); err != nil {
				verr.AddErrorf("field %q must be a string", key)
				continue
			}
			if rec.Comment != "" && key == legacyCommentField {
				// "comment" wins when both are present.
				continue
			}
			rec.Comment = comment
			continue
		}

		var score float64
		if err := json.Unmarshal(val, &score); err != nil {
			verr.AddErrorf("score %q must be a number", key)
			continue
		}
		rec.Scores[key] = score
	}

	if err := verr.ErrOrNil(); err != nil {
		return err
	}
	*r = rec
	return nil
}

// MarshalJSON encodes the record in the same flat shape UnmarshalJSON reads.
func (r JudgeRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Scores)+1)
	for k, v := range r.Scores {
		out[k] = v
	}
	out[commentField] = r.Comment
	return json.Marshal(out)
}

// Validate rejects empty category names and non-finite scores.
func (r JudgeRecord) Validate() error {
	verr := NewInvalidInputError("judge_record")
	for _, key := range slices.Sorted(maps.Keys(r.Scores)) {
		if strings.TrimSpace(key) == "" {
			verr.AddError("category name cannot be empty")
			continue
		}
		if v := r.Scores[key]; math.IsNaN(v) || math.IsInf(v, 0) {
			verr.AddErrorf("score %q must be a finite number", key)
		}
	}
	return verr.ErrOrNil()
}

func isJSONNull(b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

// CategoryScores is an immutable category→score mapping whose iteration
// order is always the lexicographic order of its keys.
type CategoryScores struct {
	keys   []string
	values map[string]float64
}

// NewCategoryScores copies m into a CategoryScores.
func NewCategoryScores(m map[string]float64) CategoryScores {
	return CategoryScores{
		keys:   slices.Sorted(maps.Keys(m)),
		values: maps.Clone(m),
	}
}

// Keys returns the category names in sorted order.
func (c CategoryScores) Keys() []string { return slices.Clone(c.keys) }

// Len returns the number of categories.
func (c CategoryScores) Len() int { return len(c.keys) }

// Get returns the score for category.
func (c CategoryScores) Get(category string) (float64, bool) {
	v, ok := c.values[category]
	return v, ok
}

// Each calls fn for every category in sorted order.
func (c CategoryScores) Each(fn func(category string, score float64)) {
	for _, k := range c.keys {
		fn(k, c.values[k])
	}
}

// Map returns a copy of the underlying mapping.
func (c CategoryScores) Map() map[string]float64 {
	if c.values == nil {
		return map[string]float64{}
	}
	return maps.Clone(c.values)
}

// Equal reports whether both mappings hold the same categories and scores.
func (c CategoryScores) Equal(other CategoryScores) bool {
	return slices.Equal(c.keys, other.keys) && maps.Equal(c.values, other.values)
}

// MarshalJSON emits an object with keys in sorted order.
func (c CategoryScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.values[k])
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a plain JSON object of numbers.
func (c *CategoryScores) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = NewCategoryScores(m)
	return nil
}

// AggregatedFeedback is the aggregation output for one subject.
type AggregatedFeedback struct {
	// Scores holds the normalized score per category.
	Scores CategoryScores `json:"scores"`

	// Comments holds every judge comment in submission order, empty ones
	// included.
	Comments []string `json:"comments"`

	// JudgeCount is the number of records aggregated.
	JudgeCount int `json:"judge_count"`
}

// SubjectMetadata identifies the entity under evaluation.
type SubjectMetadata struct {
	Name string `json:"name"`
}

// Validate requires a non-blank name.
func (m SubjectMetadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return NewInvalidInputError("subject", "name is required")
	}
	return nil
}

// AnalysisResult is the final response of a comprehensive analysis.
type AnalysisResult struct {
	SubjectName      string         `json:"subject_name"`
	Analysis         string         `json:"analysis"`
	AggregateScores  CategoryScores `json:"aggregate_scores"`
	DetailedFeedback []string       `json:"detailed_feedback"`
}

// NewAnalysisResult echoes the aggregated feedback next to the generated
// analysis. The comment slice is copied so later edits to feedback cannot
// leak into the result.
func NewAnalysisResult(subject SubjectMetadata, analysis string, feedback AggregatedFeedback) *AnalysisResult {
	comments := slices.Clone(feedback.Comments)
	if comments == nil {
		comments = []string{}
	}
	return &AnalysisResult{
		SubjectName:      subject.Name,
		Analysis:         analysis,
		AggregateScores:  feedback.Scores,
		DetailedFeedback: comments,
	}
}
