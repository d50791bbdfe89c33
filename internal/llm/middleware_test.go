package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmclient "repowiki/internal/llm/client"
)

// scriptedClient fails the first n calls with err, then succeeds.
type scriptedClient struct {
	mu     sync.Mutex
	calls  int
	failN  int
	err    error
	chunks []string
	times  []time.Time
}

func (s *scriptedClient) Name() string { return "scripted" }
func (s *scriptedClient) Close() error { return nil }

func (s *scriptedClient) next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.times = append(s.times, time.Now())
	if s.calls <= s.failN {
		return s.err
	}
	return nil
}

func (s *scriptedClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return json.RawMessage(`{}`), nil
}

func (s *scriptedClient) StreamChat(ctx context.Context, system string, history []llmclient.Message, onChunk func(string)) error {
	for _, c := range s.chunks {
		onChunk(c)
	}
	return s.next()
}

func TestWrap_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next LLMClient) LLMClient {
			order = append(order, name)
			return next
		}
	}
	Wrap(&scriptedClient{}, mark("A"), mark("B"))
	// B wraps the inner client first, then A wraps B.
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestRetry_RecoversFromTransientErrors(t *testing.T) {
	inner := &scriptedClient{failN: 2, err: errors.New("503")}
	cli := Wrap(inner, Retry(3, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	inner := &scriptedClient{failN: 5, err: llmclient.NewPermanentError(errors.New("400"))}
	cli := Wrap(inner, Retry(5, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &scriptedClient{failN: 10, err: errors.New("boom")}
	cli := Wrap(inner, Retry(3, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 3, inner.calls)
}

func TestRetry_StreamNotReplayedAfterChunks(t *testing.T) {
	inner := &scriptedClient{failN: 10, err: errors.New("reset"), chunks: []string{"partial"}}
	cli := Wrap(inner, Retry(3, time.Millisecond))

	var got []string
	err := cli.StreamChat(context.Background(), "sys", nil, func(c string) { got = append(got, c) })
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, []string{"partial"}, got)
}

func TestRateLimit_Spacing(t *testing.T) {
	inner := &scriptedClient{}
	cli := Wrap(inner, RateLimit(10, 1))
	t.Cleanup(func() { _ = cli.Close() })

	for i := 0; i < 3; i++ {
		_, err := cli.GenerateJSON(context.Background(), "p", nil)
		require.NoError(t, err)
	}
	require.Len(t, inner.times, 3)
	// Burst of one: calls two and three each wait for a refill (~100ms).
	assert.GreaterOrEqual(t, inner.times[2].Sub(inner.times[0]), 150*time.Millisecond)
}

func TestRateLimit_ContextCanceled(t *testing.T) {
	inner := &scriptedClient{}
	cli := Wrap(inner, RateLimit(0.01, 1))
	t.Cleanup(func() { _ = cli.Close() })

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cli.GenerateJSON(ctx, "p", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimit_DisabledIsPassthrough(t *testing.T) {
	assert.Nil(t, newLimiter(0, 5))
	assert.NoError(t, waitTurn(context.Background(), nil))

	inner := &scriptedClient{}
	cli := Wrap(inner, RateLimit(0, 0))
	for range 5 {
		_, err := cli.GenerateJSON(context.Background(), "p", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, inner.calls)
}

func TestWithLogging_IncludesPhase(t *testing.T) {
	var buf bytes.Buffer
	inner := &scriptedClient{failN: 1, err: errors.New("quota")}
	cli := Wrap(inner, WithLogging(log.New(&buf, "", 0)))

	ctx := WithPhase(context.Background(), PhaseDeepDive)
	_, _ = cli.GenerateJSON(ctx, "prompt", map[string]int{"a": 1})
	out := buf.String()
	assert.Contains(t, out, "LLM request (deep_dive)")
	assert.Contains(t, out, "LLM error (deep_dive): quota")
}

type recordingObserver struct {
	before, after []string
}

func (h *recordingObserver) Before(ctx context.Context, phase, prompt string, input any) {
	h.before = append(h.before, phase)
}

func (h *recordingObserver) After(ctx context.Context, phase string, raw json.RawMessage, err error) {
	h.after = append(h.after, phase)
}

func TestObserve(t *testing.T) {
	h := &recordingObserver{}
	cli := Wrap(&scriptedClient{}, Observe())

	ctx := WithObserver(WithPhase(context.Background(), PhaseArchitecture), h)
	_, err := cli.GenerateJSON(ctx, "p", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{PhaseArchitecture}, h.before)
	assert.Equal(t, []string{PhaseArchitecture}, h.after)

	// No observer in context is a no-op.
	_, err = cli.GenerateJSON(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Len(t, h.before, 1)
}

func TestWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	inner := &scriptedClient{failN: 1, err: errors.New("x")}
	cli := Wrap(inner, WithMetrics(m))

	ctx := WithPhase(context.Background(), PhaseArchitecture)
	_, _ = cli.GenerateJSON(ctx, "p", nil)
	_, _ = cli.GenerateJSON(ctx, "p", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues(PhaseArchitecture, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Calls.WithLabelValues(PhaseArchitecture, "ok")))
}
