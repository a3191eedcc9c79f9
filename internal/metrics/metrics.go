// Package metrics exposes Prometheus instrumentation for the arena. A nil
// *Metrics is a no-op, so wiring is optional in tests.
package metrics

import (
	"context"
	"time"

	"llm-arena/internal/llm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	battlesStarted     prometheus.Counter
	votesCast          *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	invocationFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		battlesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "arena_battles_started_total",
			Help: "Battles successfully started and persisted.",
		}),
		votesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_votes_cast_total",
			Help: "Votes cast, partitioned by verdict.",
		}, []string{"verdict"}),
		invocationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "arena_model_invocation_duration_seconds",
			Help:    "Latency of upstream model invocations.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model", "status"}),
		invocationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "arena_model_invocation_failures_total",
			Help: "Failed upstream model invocations.",
		}, []string{"model"}),
	}
}

func (m *Metrics) BattleStarted() {
	if m == nil {
		return
	}
	m.battlesStarted.Inc()
}

func (m *Metrics) VoteCast(verdict string) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(verdict).Inc()
}

func (m *Metrics) observeInvocation(model string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.invocationFailures.WithLabelValues(model).Inc()
	}
	m.invocationDuration.WithLabelValues(model, status).Observe(d.Seconds())
}

// InstrumentedInvoker wraps an llm.Invoker with latency and failure metrics.
type InstrumentedInvoker struct {
	next llm.Invoker
	m    *Metrics
}

func NewInstrumentedInvoker(next llm.Invoker, m *Metrics) *InstrumentedInvoker {
	return &InstrumentedInvoker{next: next, m: m}
}

func (i *InstrumentedInvoker) Invoke(ctx context.Context, modelID, question, ragContext string) (string, error) {
	start := time.Now()
	resp, err := i.next.Invoke(ctx, modelID, question, ragContext)
	i.m.observeInvocation(modelID, time.Since(start), err)
	return resp, err
}
