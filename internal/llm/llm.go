// Package llm decorates an llmclient.LLMClient with cross-cutting
// concerns. Each concern is a Middleware; Wrap composes them.
package llm

import (
	"context"

	llmclient "repowiki/internal/llm/client"
)

type LLMClient = llmclient.LLMClient

// Phase names used when tagging calls.
const (
	PhaseArchitecture = "architecture"
	PhaseDeepDive     = "deep_dive"
	PhaseChat         = "chat"
)

func WithPhase(ctx context.Context, phase string) context.Context {
	return llmclient.WithPhase(ctx, phase)
}

func PhaseFrom(ctx context.Context) string { return llmclient.PhaseFrom(ctx) }
