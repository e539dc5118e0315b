package llm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ahrav/go-panel/infrastructure/llm"

type tracedProvider struct {
	next   Provider
	tracer trace.Tracer
}

// TracingMiddleware wraps each call in an "llm.complete" span. A nil
// tracer uses the global provider, which is a no-op until one is installed.
func TracingMiddleware(tracer trace.Tracer) Middleware {
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return func(next Provider) Provider {
		return &tracedProvider{next: next, tracer: tracer}
	}
}

func (t *tracedProvider) Complete(ctx context.Context, prompt string, opts map[string]any) (Completion, error) {
	ctx, span := t.tracer.Start(ctx, "llm.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", t.next.Name()),
			attribute.String("llm.model", t.next.Model()),
			attribute.Int("llm.prompt.length", len(prompt)),
		),
	)
	defer span.End()

	completion, err := t.next.Complete(ctx, prompt, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return completion, err
	}

	span.SetAttributes(
		attribute.String("llm.response.provider", completion.Provider),
		attribute.String("llm.response.model", completion.Model),
		attribute.Int("llm.tokens.input", completion.TokensIn),
		attribute.Int("llm.tokens.output", completion.TokensOut),
	)
	return completion, nil
}

func (t *tracedProvider) Name() string  { return t.next.Name() }
func (t *tracedProvider) Model() string { return t.next.Model() }
