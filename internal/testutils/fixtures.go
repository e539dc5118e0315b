package testutils

import "github.com/ahrav/go-panel/internal/domain"

// SampleSubject is the subject used across tests.
var SampleSubject = domain.SubjectMetadata{Name: "Tech Startup XYZ"}

// SampleJudgeRecords returns three judges scoring a startup, the last one
// skipping "communication".
func SampleJudgeRecords() []domain.JudgeRecord {
	return []domain.JudgeRecord{
		domain.NewJudgeRecord(map[string]float64{"problem": 4, "solution": 3, "communication": 5}, "Great idea, but execution needs work."),
		domain.NewJudgeRecord(map[string]float64{"problem": 5, "solution": 4, "communication": 4}, "Strong solution but unclear market fit."),
		domain.NewJudgeRecord(map[string]float64{"problem": 3, "solution": 4}, ""),
	}
}

// SampleJudgeFeedbackJSON is SampleJudgeRecords in wire form.
const SampleJudgeFeedbackJSON = `[
	{"problem": 4, "solution": 3, "communication": 5, "comment": "Great idea, but execution needs work."},
	{"problem": 5, "solution": 4, "communication": 4, "feedback": "Strong solution but unclear market fit."},
	{"problem": 3, "solution": 4}
]`

// SampleCategoryFeedback returns report input using loose category labels.
func SampleCategoryFeedback() domain.CategoryFeedback {
	return domain.CategoryFeedback{
		HighLevel: "A promising team with an unproven go-to-market.",
		Categories: map[string]string{
			"Team":           "Experienced founders with domain depth.",
			"Business Model": "Pricing is not validated.",
			"innovation":     "Incremental over incumbents.",
		},
	}
}
