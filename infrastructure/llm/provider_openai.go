package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults for the OpenAI wire protocol family.
const (
	OpenAIDefaultModel = "gpt-4o-mini"

	// Groq serves an OpenAI compatible API.
	GroqBaseURL      = "https://api.groq.com/openai/v1"
	GroqDefaultModel = "llama-3.1-8b-instant"
)

func init() {
	RegisterProviderFactory("openai", func(cfg ClientConfig) (Provider, error) {
		return newOpenAICompatibleProvider("openai", OpenAIDefaultModel, "", cfg)
	})
	RegisterProviderFactory("groq", func(cfg ClientConfig) (Provider, error) {
		return newOpenAICompatibleProvider("groq", GroqDefaultModel, GroqBaseURL, cfg)
	})
}

// openAIProvider talks to any backend implementing the OpenAI chat
// completions API.
type openAIProvider struct {
	name       string
	model      string
	client     *openai.Client
	estimator  TokenEstimator
	classifier *ErrorClassifier
}

func newOpenAICompatibleProvider(name, defaultModel, defaultBaseURL string, cfg ClientConfig) (*openAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if baseURL != "" {
		validated, err := ValidateBaseURL(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = validated
	}

	if timeout := ClampTimeout(cfg.Timeout); timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &openAIProvider{
		name:       name,
		model:      model,
		client:     openai.NewClientWithConfig(clientConfig),
		estimator:  NewCharacterEstimator(DefaultCharsPerToken),
		classifier: &ErrorClassifier{Provider: name},
	}, nil
}

// Complete implements Provider.
func (p *openAIProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	options := ParseRequestOptions(opts, p.model)

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(prompt, options))
	if err != nil {
		return Completion{}, p.handleError(err)
	}
	if len(resp.Choices) == 0 {
		return Completion{}, NewProviderError(p.name, ErrorTypeServerError, 0, "", ErrNoResponseChoice)
	}

	text := resp.Choices[0].Message.Content
	if text == "" {
		return Completion{}, NewProviderError(p.name, ErrorTypeServerError, 0, "", ErrEmptyResponse)
	}

	return Completion{
		Text:      text,
		Provider:  p.name,
		Model:     options.Model,
		TokensIn:  tokenCount(resp.Usage.PromptTokens, prompt, p.estimator),
		TokensOut: tokenCount(resp.Usage.CompletionTokens, text, p.estimator),
	}, nil
}

// Name implements Provider.
func (p *openAIProvider) Name() string { return p.name }

// Model implements Provider.
func (p *openAIProvider) Model() string { return p.model }

func (p *openAIProvider) buildRequest(prompt string, options RequestOptions) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     options.Model,
		Messages:  messages,
		MaxTokens: options.MaxTokens,
	}
	if options.Temperature != nil {
		req.Temperature = float32(clamp(*options.Temperature, 0, 2))
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}
	return req
}

func (p *openAIProvider) handleError(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		perr := p.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, apiErr.Message, err)
		// Groq and OpenAI report an exhausted quota with a dedicated code
		// even when the status is not 429.
		if code, ok := apiErr.Code.(string); ok && code == "insufficient_quota" {
			perr.Type = ErrorTypeRateLimit
		}
		// go-openai does not expose response headers, so no retry hint.
		return markTransient(perr, nil)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return markTransient(p.classifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "request failed", err), nil)
	}

	return NewProviderError(p.name, ErrorTypeNetwork, 0, "request failed", err)
}

// tokenCount prefers the count reported by the API.
func tokenCount[T int | int32 | int64](reported T, text string, estimator TokenEstimator) int {
	if reported > 0 {
		return int(reported)
	}
	return estimator.EstimateTokens(text)
}
