package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcdev12/songquiz/go/internal/models"
)

const namespace = "songquiz"

// Metrics implements every recorder interface of the gateway with Prometheus
// collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	roundsResolved    *prometheus.CounterVec
	bffLatency        *prometheus.HistogramVec
	suggestionQueries *prometheus.CounterVec
	activeSessions    prometheus.Gauge
	publishAttempts   *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		roundsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_resolved_total",
			Help:      "Rounds resolved, by outcome.",
		}, []string{"outcome"}),
		bffLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bff_request_duration_seconds",
			Help:      "Latency of BFF calls, by operation and HTTP status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "status"}),
		suggestionQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestion_queries_total",
			Help:      "Suggestion queries, by disposition.",
		}, []string{"disposition"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Game sessions currently attached to a connection.",
		}),
		publishAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_total",
			Help:      "Events published to NATS, by type and status.",
		}, []string{"event_type", "status"}),
	}
	reg.MustRegister(
		m.roundsResolved,
		m.bffLatency,
		m.suggestionQueries,
		m.activeSessions,
		m.publishAttempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordRoundResolved(outcome models.OutcomeKind) {
	if m == nil {
		return
	}
	m.roundsResolved.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) ObserveBFFCall(op, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.bffLatency.WithLabelValues(op, status).Observe(d.Seconds())
}

func (m *Metrics) RecordSuggestionQuery(disposition string) {
	if m == nil {
		return
	}
	m.suggestionQueries.WithLabelValues(disposition).Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) RecordPublishAttempt(eventType string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.publishAttempts.WithLabelValues(eventType, status).Inc()
}
