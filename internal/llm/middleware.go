package llm

import (
	"context"
	"encoding/json"
	"log"
	"time"

	llmclient "repowiki/internal/llm/client"
)

// Middleware wraps a client with one concern.
type Middleware func(LLMClient) LLMClient

// Wrap decorates inner so that the first middleware is the outermost:
// Wrap(c, A, B) behaves as A(B(c)).
func Wrap(inner LLMClient, mws ...Middleware) LLMClient {
	for i := len(mws) - 1; i >= 0; i-- {
		inner = mws[i](inner)
	}
	return inner
}

// WithLogging writes one line per call and one per failure. A nil logger
// means log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next LLMClient) LLMClient { return &logged{next: next, log: logger} }
}

type logged struct {
	next LLMClient
	log  *log.Logger
}

func (l *logged) Name() string { return l.next.Name() }
func (l *logged) Close() error { return l.next.Close() }

func (l *logged) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	phase := PhaseFrom(ctx)
	payload, _ := json.Marshal(input)
	l.log.Printf("LLM request (%s): %s, %d prompt bytes, %d input bytes", phase, l.next.Name(), len(prompt), len(payload))
	start := time.Now()
	raw, err := l.next.GenerateJSON(ctx, prompt, input)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", phase, err)
		return raw, err
	}
	l.log.Printf("LLM response (%s): %d bytes in %s", phase, len(raw), time.Since(start).Round(time.Millisecond))
	return raw, nil
}

func (l *logged) StreamChat(ctx context.Context, system string, history []llmclient.Message, onChunk func(string)) error {
	phase := PhaseFrom(ctx)
	l.log.Printf("LLM request (%s): %s, %d messages", phase, l.next.Name(), len(history))
	if err := l.next.StreamChat(ctx, system, history, onChunk); err != nil {
		l.log.Printf("LLM error (%s): %v", phase, err)
		return err
	}
	return nil
}
