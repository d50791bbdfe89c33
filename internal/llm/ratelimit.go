package llm

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/time/rate"

	llmclient "repowiki/internal/llm/client"
)

// RateLimit spaces provider calls to rps with the given burst. A
// non-positive rps disables limiting.
func RateLimit(rps float64, burst int) Middleware {
	return func(next LLMClient) LLMClient {
		return &throttled{next: next, lim: newLimiter(rps, burst)}
	}
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}

type throttled struct {
	next LLMClient
	lim  *rate.Limiter
}

func (t *throttled) Name() string { return t.next.Name() }
func (t *throttled) Close() error { return t.next.Close() }

func (t *throttled) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := waitTurn(ctx, t.lim); err != nil {
		return nil, err
	}
	return t.next.GenerateJSON(ctx, prompt, input)
}

func (t *throttled) StreamChat(ctx context.Context, system string, history []llmclient.Message, onChunk func(string)) error {
	if err := waitTurn(ctx, t.lim); err != nil {
		return err
	}
	return t.next.StreamChat(ctx, system, history, onChunk)
}

// waitTurn blocks until lim admits one call. Unlike rate.Limiter.Wait it
// reports ctx.Err() on cancellation, so callers can match on
// context.DeadlineExceeded.
func waitTurn(ctx context.Context, lim *rate.Limiter) error {
	if lim == nil {
		return ctx.Err()
	}
	r := lim.Reserve()
	d := r.Delay()
	if d == 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
