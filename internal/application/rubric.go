package application

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-panel/internal/domain"
)

// DefaultRubricThreshold is the minimum similarity for a fuzzy label match.
const DefaultRubricThreshold = 0.8

// RubricResolver maps free-form category labels such as "Business Model",
// "bussiness_model" or "TEAM" onto a fixed list of canonical categories.
// It is stateless and safe for concurrent use.
type RubricResolver struct {
	categories []string
	threshold  float64
}

// NewRubricResolver creates a resolver over categories. A threshold outside
// (0, 1] selects DefaultRubricThreshold.
func NewRubricResolver(categories []string, threshold float64) *RubricResolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultRubricThreshold
	}
	return &RubricResolver{categories: slices.Clone(categories), threshold: threshold}
}

// NewDefaultRubricResolver resolves onto domain.RubricCategories.
func NewDefaultRubricResolver() *RubricResolver {
	return NewRubricResolver(domain.RubricCategories, DefaultRubricThreshold)
}

// Categories returns the canonical categories in report order.
func (r *RubricResolver) Categories() []string { return slices.Clone(r.categories) }

// Resolve returns the canonical category for label. Exact matches after
// normalization win; otherwise the most similar category at or above the
// threshold is chosen, ties going to the earlier category.
func (r *RubricResolver) Resolve(label string) (string, bool) {
	key := normalizeLabel(label)
	if key == "" {
		return "", false
	}
	if slices.Contains(r.categories, key) {
		return key, true
	}

	best, bestScore := "", 0.0
	for _, category := range r.categories {
		if score := similarity(key, category); score > bestScore {
			best, bestScore = category, score
		}
	}
	if bestScore < r.threshold {
		return "", false
	}
	return best, true
}

// ResolveFeedback rewrites every category key of f to its canonical name.
// Unknown labels and labels colliding on one category are reported together
// in a single InvalidInputError.
func (r *RubricResolver) ResolveFeedback(f domain.CategoryFeedback) (domain.CategoryFeedback, error) {
	out := domain.CategoryFeedback{
		HighLevel:  f.HighLevel,
		Categories: make(map[string]string, len(f.Categories)),
	}

	verr := domain.NewInvalidInputError("feedback")
	seen := make(map[string]string, len(f.Categories))
	labels := make([]string, 0, len(f.Categories))
	for label := range f.Categories {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	for _, label := range labels {
		category, ok := r.Resolve(label)
		if !ok {
			verr.AddErrorf("unknown category %q", label)
			continue
		}
		if prev, dup := seen[category]; dup {
			verr.AddErrorf("categories %q and %q both refer to %q", prev, label, category)
			continue
		}
		seen[category] = label
		out.Categories[category] = f.Categories[label]
	}

	if err := verr.ErrOrNil(); err != nil {
		return domain.CategoryFeedback{}, err
	}
	return out, nil
}

// normalizeLabel folds case and turns spaces, dashes and dots into single
// underscores.
func normalizeLabel(label string) string {
	folded := cases.Fold().String(strings.TrimSpace(label))
	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '-' || r == '.' || r == '_' || r == '\t'
	})
	return strings.Join(fields, "_")
}

// similarity is 1 - distance/maxLen over runes, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}
