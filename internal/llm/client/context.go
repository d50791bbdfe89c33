package llmclient

import "context"

type phaseKey struct{}

const unknownPhase = "unknown"

// WithPhase records which pipeline step is making the call. Middleware
// labels logs and metrics with it; FakeClient picks its canned reply by it.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey{}, phase)
}

// PhaseFrom reports the phase set by WithPhase, or "unknown".
func PhaseFrom(ctx context.Context) string {
	if p, _ := ctx.Value(phaseKey{}).(string); p != "" {
		return p
	}
	return unknownPhase
}
