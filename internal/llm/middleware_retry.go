package llm

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	llmclient "repowiki/internal/llm/client"
)

const defaultRetryDelay = 300 * time.Millisecond

// Retry re-issues failed calls up to attempts times in total, doubling the
// pause after each failure starting from delay. Permanent provider errors
// and context errors are returned as-is.
func Retry(attempts int, delay time.Duration) Middleware {
	attempts = max(attempts, 1)
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	return func(next LLMClient) LLMClient {
		return &retrying{next: next, attempts: attempts, delay: delay}
	}
}

type retrying struct {
	next     LLMClient
	attempts int
	delay    time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	var out json.RawMessage
	err := r.loop(ctx, func() (bool, error) {
		raw, err := r.next.GenerateJSON(ctx, prompt, input)
		out = raw
		return true, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StreamChat gives up as soon as a chunk has reached onChunk; a replay
// would repeat text the caller already forwarded.
func (r *retrying) StreamChat(ctx context.Context, system string, history []llmclient.Message, onChunk func(string)) error {
	return r.loop(ctx, func() (bool, error) {
		delivered := false
		err := r.next.StreamChat(ctx, system, history, func(c string) {
			delivered = true
			onChunk(c)
		})
		return !delivered, err
	})
}

// loop runs call until it succeeds, reports itself non-retryable, fails
// permanently, or the attempt budget is spent.
func (r *retrying) loop(ctx context.Context, call func() (retryable bool, err error)) error {
	pause := r.delay
	for n := 1; ; n++ {
		retryable, err := call()
		switch {
		case err == nil:
			return nil
		case !retryable, isPermanent(err), n >= r.attempts:
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
		pause *= 2
	}
}

func isPermanent(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var perm *llmclient.PermanentError
	return errors.As(err, &perm)
}
