package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics exposed by the engine's scrape
// endpoint. It owns its registry so tests can create isolated instances.
type Metrics struct {
	executionsTotal  *prometheus.CounterVec
	executionLatency *prometheus.HistogramVec
	buildsTotal      *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slime_handler_executions_total",
				Help: "Total handler executions by handler kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		executionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slime_handler_duration_seconds",
				Help:    "Handler execution latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),

		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "slime_builds_total",
				Help: "Total assembly brackets by phase and status",
			},
			[]string{"phase", "status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.executionsTotal,
		m.executionLatency,
		m.buildsTotal,
	)

	return m
}

// ObserveExecution records one handler execution.
func (m *Metrics) ObserveExecution(kind, outcome string, duration time.Duration) {
	m.executionsTotal.WithLabelValues(kind, outcome).Inc()
	m.executionLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObserveBuild records one assembly bracket completion.
func (m *Metrics) ObserveBuild(phase, status string) {
	m.buildsTotal.WithLabelValues(phase, status).Inc()
}

// Handler returns an HTTP handler serving this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for additional collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// Default returns the process-wide metrics instance.
func Default() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}
