package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleModels is the slice of the genai client used here.
type googleModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type googleProvider struct {
	models     googleModels
	model      string
	estimator  TokenEstimator
	classifier *ErrorClassifier
}

func newGoogleProvider(cfg ClientConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		baseURL, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		clientConfig.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		models:     client.Models,
		model:      model,
		estimator:  NewCharacterEstimator(DefaultCharsPerToken),
		classifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// Complete implements Provider.
func (p *googleProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	options := ParseRequestOptions(opts, p.model)

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := p.models.GenerateContent(ctx, options.Model, contents, buildGenerationConfig(options))
	if err != nil {
		return Completion{}, p.handleError(err)
	}

	text := resp.Text()
	if text == "" {
		return Completion{}, NewProviderError("google", ErrorTypeServerError, 0, "", ErrEmptyResponse)
	}

	var promptTokens, outputTokens int32
	if resp.UsageMetadata != nil {
		promptTokens = resp.UsageMetadata.PromptTokenCount
		outputTokens = resp.UsageMetadata.CandidatesTokenCount
	}

	return Completion{
		Text:      text,
		Provider:  "google",
		Model:     options.Model,
		TokensIn:  tokenCount(promptTokens, prompt, p.estimator),
		TokensOut: tokenCount(outputTokens, text, p.estimator),
	}, nil
}

// Name implements Provider.
func (p *googleProvider) Name() string { return "google" }

// Model implements Provider.
func (p *googleProvider) Model() string { return p.model }

func buildGenerationConfig(options RequestOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	if options.System != "" {
		config.SystemInstruction = genai.NewContentFromText(options.System, genai.RoleUser)
	}
	if options.Temperature != nil {
		config.Temperature = genai.Ptr(float32(clamp(*options.Temperature, 0, 2)))
	}
	if options.MaxTokens > 0 {
		config.MaxOutputTokens = int32(min(options.MaxTokens, math.MaxInt32))
	}
	if options.TopP != nil {
		config.TopP = genai.Ptr(float32(*options.TopP))
	}
	return config
}

func (p *googleProvider) handleError(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		perr := p.classifier.ClassifyHTTPError(apiErr.Code, apiErr.Message, err)
		if errType, ok := p.classifier.ClassifyStatus(apiErr.Status); ok {
			perr.Type = errType
		}
		return markTransient(perr, nil)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		message := gErr.Message
		if message == "" && len(gErr.Errors) > 0 {
			message = gErr.Errors[0].Message
		}
		if isSafetyBlock(gErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, gErr.Code, "request blocked by safety filters", err)
		}
		perr := p.classifier.ClassifyHTTPError(gErr.Code, message, err)
		for _, item := range gErr.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "quotaExceeded" {
				perr.Type = ErrorTypeRateLimit
			}
		}
		return markTransient(perr, gErr.Header)
	}

	return NewProviderError("google", ErrorTypeNetwork, 0, "request failed", err)
}

func isSafetyBlock(gErr *googleapi.Error) bool {
	for _, item := range gErr.Errors {
		if item.Reason == "SAFETY" || item.Reason == "BLOCKED" {
			return true
		}
	}
	return strings.Contains(strings.ToLower(gErr.Message), "safety")
}
