// Package metrics exports conversation loop metrics.
//
// Metrics holds Prometheus collectors on a private registry and
// LatencyCollector keeps a per-turn latency breakdown. Both implement
// assistant.Observer.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-clawd/pkg/assistant"
)

// Metrics contains the Prometheus metrics for the conversation loop.
type Metrics struct {
	registry *prometheus.Registry

	// Turns counts finished turns by outcome (ok, failed, empty).
	Turns *prometheus.CounterVec

	// StageErrors counts failures by stage (listen, chat, speak).
	StageErrors *prometheus.CounterVec

	// StageDuration observes how long each stage took.
	StageDuration *prometheus.HistogramVec

	// HistoryTurns is the number of turns persisted after the last chat.
	HistoryTurns prometheus.Gauge
}

// New creates the metrics on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clawd_turns_total",
			Help: "Total number of conversation turns by outcome",
		}, []string{"outcome"}),
		StageErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clawd_stage_errors_total",
			Help: "Total number of failures by pipeline stage",
		}, []string{"stage"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clawd_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"stage"}),
		HistoryTurns: f.NewGauge(prometheus.GaugeOpts{
			Name: "clawd_history_turns",
			Help: "Number of turns in the conversation memory",
		}),
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observe records an assistant event.
func (m *Metrics) Observe(e assistant.Event) {
	switch e.Kind {
	case assistant.KindTurn:
		m.Turns.WithLabelValues(string(e.Outcome)).Inc()
		return
	case assistant.KindChat:
		if e.History > 0 {
			m.HistoryTurns.Set(float64(e.History))
		}
	}

	stage := string(e.Kind)
	m.StageDuration.WithLabelValues(stage).Observe(e.Latency.Seconds())
	if e.Err != nil {
		m.StageErrors.WithLabelValues(stage).Inc()
	}
}

var _ assistant.Observer = (*Metrics)(nil)
