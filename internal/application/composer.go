package application

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-panel/internal/domain"
)

const (
	analysisPrompt = "Please analyze the following judge feedback for %s:\n\n" +
		"Normalized Scores:\n%s\n\n" +
		"Judge Feedback:\n%s\n\n" +
		"Provide a comprehensive analysis of the startup's strengths and weaknesses, " +
		"including any key trends, insights, and recommendations for improvement."

	quickPrompt = "Based on the following feedback, provide a quick analysis of the " +
		"startup's strengths and weaknesses:\n\n" +
		"Feedback:\n%s\n\n" +
		"Provide a concise summary highlighting key strengths and areas for improvement."

	summaryPromptHeader = "Please generate a detailed and high-level summary for the " +
		"following feedback for the startup:\n\n" +
		"High-level Summary of Feedback:\n%s\n\n" +
		"Detailed Feedback per Scoring Category:\n"

	summaryPromptFooter = "\nPlease provide actionable insights for both the judges and the startup."
)

// PromptComposer renders the prompts sent to the completion service. Every
// method is a pure function of its arguments.
type PromptComposer struct {
	categories []string
}

// NewPromptComposer creates a composer whose category summaries follow
// domain.RubricCategories.
func NewPromptComposer() *PromptComposer {
	return &PromptComposer{categories: slices.Clone(domain.RubricCategories)}
}

// AnalysisPrompt renders the comprehensive analysis request. Scores appear
// as an indented JSON object in sorted key order and comments as an indented
// JSON array in submission order.
func (c *PromptComposer) AnalysisPrompt(subject domain.SubjectMetadata, feedback domain.AggregatedFeedback) (string, error) {
	if err := subject.Validate(); err != nil {
		return "", err
	}

	scores, err := json.MarshalIndent(feedback.Scores, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode scores: %w", err)
	}

	comments, err := indentedJSON(feedback.Comments)
	if err != nil {
		return "", fmt.Errorf("failed to encode comments: %w", err)
	}

	return fmt.Sprintf(analysisPrompt, subject.Name, scores, comments), nil
}

// indentedJSON encodes comments without HTML escaping so quotes and angle
// brackets reach the model as written. A nil slice renders as [].
func indentedJSON(comments []string) (string, error) {
	if comments == nil {
		comments = []string{}
	}
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(comments); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

// QuickPrompt renders the real-time analysis request for already joined
// feedback text.
func (c *PromptComposer) QuickPrompt(feedback string) (string, error) {
	if strings.TrimSpace(feedback) == "" {
		return "", domain.NewInvalidInputError("feedback", "feedback is required")
	}
	return fmt.Sprintf(quickPrompt, feedback), nil
}

// SummaryPrompt renders the report summary request. Every rubric category
// is listed in canonical order; categories without a comment render empty.
// Category keys must already be canonical, see RubricResolver.
func (c *PromptComposer) SummaryPrompt(feedback domain.CategoryFeedback) (string, error) {
	if err := feedback.Validate(); err != nil {
		return "", err
	}

	title := cases.Title(language.English)
	var b strings.Builder
	fmt.Fprintf(&b, summaryPromptHeader, feedback.HighLevel)
	for _, category := range c.categories {
		label := title.String(strings.ReplaceAll(category, "_", " "))
		fmt.Fprintf(&b, "%s: %s\n", label, feedback.Categories[category])
	}
	b.WriteString(summaryPromptFooter)
	return b.String(), nil
}
