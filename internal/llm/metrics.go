package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	llmclient "repowiki/internal/llm/client"
)

// Metrics holds the per-phase LLM call instruments.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the LLM instruments on reg. A nil reg
// skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repowiki",
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls by phase and outcome.",
		}, []string{"phase", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "repowiki",
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call latency by phase.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"phase"}),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Duration)
	}
	return m
}

// WithMetrics records call counts and latency per phase.
func WithMetrics(m *Metrics) Middleware {
	return func(next LLMClient) LLMClient {
		if m == nil {
			return next
		}
		return &metered{next: next, m: m}
	}
}

type metered struct {
	next LLMClient
	m    *Metrics
}

func (c *metered) Name() string { return c.next.Name() }
func (c *metered) Close() error { return c.next.Close() }

func (c *metered) observe(ctx context.Context, start time.Time, err error) {
	phase := PhaseFrom(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.m.Calls.WithLabelValues(phase, outcome).Inc()
	c.m.Duration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func (c *metered) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	start := time.Now()
	raw, err := c.next.GenerateJSON(ctx, prompt, input)
	c.observe(ctx, start, err)
	return raw, err
}

func (c *metered) StreamChat(ctx context.Context, system string, history []llmclient.Message, onChunk func(string)) error {
	start := time.Now()
	err := c.next.StreamChat(ctx, system, history, onChunk)
	c.observe(ctx, start, err)
	return err
}
