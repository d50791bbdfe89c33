package llm

import (
	"context"
	"encoding/json"
)

// Observer sees every structured call made under a context carrying it.
// wikigen prints phases through one.
type Observer interface {
	Before(ctx context.Context, phase, prompt string, input any)
	After(ctx context.Context, phase string, raw json.RawMessage, err error)
}

type observerKey struct{}

func WithObserver(ctx context.Context, o Observer) context.Context {
	return context.WithValue(ctx, observerKey{}, o)
}

func ObserverFrom(ctx context.Context) Observer {
	o, _ := ctx.Value(observerKey{}).(Observer)
	return o
}

// Observe reports GenerateJSON calls to the context's Observer, if any.
// Chat streams are not observed.
func Observe() Middleware {
	return func(next LLMClient) LLMClient { return observed{next} }
}

type observed struct{ LLMClient }

func (o observed) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	obs := ObserverFrom(ctx)
	if obs == nil {
		return o.LLMClient.GenerateJSON(ctx, prompt, input)
	}
	phase := PhaseFrom(ctx)
	obs.Before(ctx, phase, prompt, input)
	raw, err := o.LLMClient.GenerateJSON(ctx, prompt, input)
	obs.After(ctx, phase, raw, err)
	return raw, err
}
