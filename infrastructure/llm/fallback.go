package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// FallbackProvider sends each call to primary and, when it fails, once to
// secondary. A call whose context is already done is not handed over.
type FallbackProvider struct {
	primary   Provider
	secondary Provider
	logger    *slog.Logger
}

// NewFallbackProvider pairs two providers. logger may be nil.
func NewFallbackProvider(primary, secondary Provider, logger *slog.Logger) *FallbackProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FallbackProvider{primary: primary, secondary: secondary, logger: logger}
}

// Complete implements Provider.
func (f *FallbackProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	completion, err := f.primary.Complete(ctx, prompt, opts)
	if err == nil {
		return served(completion, f.primary), nil
	}
	if ctx.Err() != nil {
		return completion, err
	}

	f.logger.WarnContext(ctx, "primary provider failed, using fallback",
		"primary", f.primary.Name(),
		"fallback", f.secondary.Name(),
		"error", err,
	)

	// A model override only makes sense for the primary.
	fallbackOpts := opts
	if _, ok := opts["model"]; ok {
		fallbackOpts = make(map[string]any, len(opts))
		for k, v := range opts {
			if k != "model" {
				fallbackOpts[k] = v
			}
		}
	}

	completion, ferr := f.secondary.Complete(ctx, prompt, fallbackOpts)
	if ferr != nil {
		return Completion{}, fmt.Errorf("fallback %s failed: %w (primary %s: %w)",
			f.secondary.Name(), ferr, f.primary.Name(), err)
	}
	return served(completion, f.secondary), nil
}

// served fills in the backend identity when the provider left it empty.
func served(c Completion, p Provider) Completion {
	if c.Provider == "" {
		c.Provider = p.Name()
	}
	if c.Model == "" {
		c.Model = p.Model()
	}
	return c
}

// Name implements Provider.
func (f *FallbackProvider) Name() string { return f.primary.Name() }

// Model implements Provider. It names the primary; the model that served a
// given call is reported in Completion.Model.
func (f *FallbackProvider) Model() string { return f.primary.Model() }
