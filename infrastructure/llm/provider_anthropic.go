package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is used when no model is configured.
const AnthropicDefaultModel = "claude-3-5-haiku-latest"

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

type anthropicProvider struct {
	client     anthropic.Client
	model      string
	estimator  TokenEstimator
	classifier *ErrorClassifier
}

func newAnthropicProvider(cfg ClientConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := cfg.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		baseURL, err := ValidateBaseURL(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout := ClampTimeout(cfg.Timeout); timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: timeout}))
	}
	// Retries belong to the caller.
	opts = append(opts, option.WithMaxRetries(0))

	return &anthropicProvider{
		client:     anthropic.NewClient(opts...),
		model:      model,
		estimator:  NewCharacterEstimator(DefaultCharsPerToken),
		classifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// Complete implements Provider.
func (p *anthropicProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	options := ParseRequestOptions(opts, p.model)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: int64(options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if options.Temperature != nil {
		// Anthropic accepts temperatures in [0, 1].
		params.Temperature = anthropic.Float(clamp(*options.Temperature, 0, 1))
	}
	if options.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: options.System}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Completion{}, p.handleError(err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return Completion{}, NewProviderError("anthropic", ErrorTypeServerError, 0, "", ErrEmptyResponse)
	}

	out := text.String()
	return Completion{
		Text:      out,
		Provider:  "anthropic",
		Model:     options.Model,
		TokensIn:  tokenCount(message.Usage.InputTokens, prompt, p.estimator),
		TokensOut: tokenCount(message.Usage.OutputTokens, out, p.estimator),
	}, nil
}

// Name implements Provider.
func (p *anthropicProvider) Name() string { return "anthropic" }

// Model implements Provider.
func (p *anthropicProvider) Model() string { return p.model }

func (p *anthropicProvider) handleError(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return markTransient(p.classifier.ClassifyHTTPError(apiErr.StatusCode, "", err), header)
	}

	return NewProviderError("anthropic", ErrorTypeNetwork, 0, "request failed", err)
}
