package domain

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// HighLevelField is the report member holding the overall comment.
const HighLevelField = "high_level"

// RubricCategories lists the canonical scoring categories in report order.
var RubricCategories = []string{
	"problem",
	"solution",
	"innovation",
	"team",
	"business_model",
	"market_opportunity",
	"technical_feasibility",
	"execution_strategy",
	"communication",
}

// CategoryFeedback is the input of a report summary: one overall comment
// and an optional comment per rubric category. Category keys are kept as
// supplied; resolving them onto RubricCategories happens in the
// application layer.
type CategoryFeedback struct {
	HighLevel  string
	Categories map[string]string
}

// UnmarshalJSON decodes {"high_level": "...", "<category>": "...", ...}.
// Null members are treated as empty comments.
func (f *CategoryFeedback) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewInvalidInputError("feedback", "expected a JSON object")
	}

	verr := NewInvalidInputError("feedback")
	out := CategoryFeedback{Categories: make(map[string]string, len(raw))}
	for _, key := range slices.Sorted(maps.Keys(raw)) {
		var comment string
		if !isJSONNull(raw[key]) {
			if err := json.Unmarshal(raw[key], &comment); err != nil {
				verr.AddErrorf("field %q must be a string", key)
				continue
			}
		}
		if key == HighLevelField {
			out.HighLevel = comment
			continue
		}
		out.Categories[key] = comment
	}
	if err := verr.ErrOrNil(); err != nil {
		return err
	}

	*f = out
	return nil
}

// MarshalJSON encodes the flat object form accepted by UnmarshalJSON.
func (f CategoryFeedback) MarshalJSON() ([]byte, error) {
	flat := make(map[string]string, len(f.Categories)+1)
	maps.Copy(flat, f.Categories)
	flat[HighLevelField] = f.HighLevel
	return json.Marshal(flat)
}

// Validate requires a non-blank high-level comment.
func (f CategoryFeedback) Validate() error {
	if strings.TrimSpace(f.HighLevel) == "" {
		return NewInvalidInputError("feedback", "high_level is required")
	}
	return nil
}
