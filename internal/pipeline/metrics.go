package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the run-level instruments. A nil *Metrics disables them.
type Metrics struct {
	Runs      *prometheus.CounterVec
	InFlight  prometheus.Gauge
	Joined    prometheus.Counter
	CacheHits prometheus.Counter
	Features  *prometheus.CounterVec
	Prefetch  *prometheus.CounterVec
	Duration  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repowiki", Subsystem: "pipeline", Name: "runs_total",
			Help: "Pipeline runs by result code (ok or an error code).",
		}, []string{"result"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "repowiki", Subsystem: "pipeline", Name: "runs_in_flight",
			Help: "Pipeline runs currently executing.",
		}),
		Joined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "repowiki", Subsystem: "pipeline", Name: "joined_total",
			Help: "Requests that attached to an in-flight run.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "repowiki", Subsystem: "pipeline", Name: "cache_hits_total",
			Help: "Requests served from the result cache.",
		}),
		Features: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repowiki", Subsystem: "pipeline", Name: "features_total",
			Help: "Feature deep-dives by outcome.",
		}, []string{"outcome"}),
		Prefetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "repowiki", Subsystem: "pipeline", Name: "prefetch_files_total",
			Help: "Prefetched files by outcome.",
		}, []string{"outcome"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "repowiki", Subsystem: "pipeline", Name: "run_duration_seconds",
			Help:    "Wall time of completed runs.",
			Buckets: prometheus.ExponentialBuckets(5, 2, 8),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Runs, m.InFlight, m.Joined, m.CacheHits, m.Features, m.Prefetch, m.Duration)
	}
	return m
}

func (m *Metrics) runDone(result string, seconds float64) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(result).Inc()
	if result == "ok" {
		m.Duration.Observe(seconds)
	}
}

func (m *Metrics) runStarted() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

func (m *Metrics) joined() {
	if m != nil {
		m.Joined.Inc()
	}
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) feature(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Features.WithLabelValues("ok").Inc()
	} else {
		m.Features.WithLabelValues("failed").Inc()
	}
}

func (m *Metrics) prefetched(ok, failed, skipped int) {
	if m == nil {
		return
	}
	m.Prefetch.WithLabelValues("ok").Add(float64(ok))
	m.Prefetch.WithLabelValues("failed").Add(float64(failed))
	m.Prefetch.WithLabelValues("binary").Add(float64(skipped))
}
