// Package metrics defines the Prometheus collectors exported by the quantlab
// server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quantlab"

// Metrics groups the server's collectors around a private registry so that
// several servers (and tests) can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	Requests  *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
	Backtests *prometheus.CounterVec
	Coint     *prometheus.CounterVec
	Upstream  *prometheus.CounterVec
}

// New creates and registers the collectors, plus the standard Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status code",
		}, []string{"route", "code"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Backtests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backtest_runs_total",
			Help:      "Backtest runs by signal source and status",
		}, []string{"source", "status"}),
		Coint: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cointegration_tests_total",
			Help:      "Cointegration tests by status",
		}, []string{"status"}),
		Upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream market-data requests by provider and outcome",
		}, []string{"provider", "outcome"}),
	}

	m.registry.MustRegister(
		m.Requests, m.Latency, m.Backtests, m.Coint, m.Upstream,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Gatherer exposes the registry for tests and custom exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBacktest counts one backtest run. source is "signals" or the
// strategy name; status is "ok", "invalid" or "error".
func (m *Metrics) RecordBacktest(source, status string) {
	m.Backtests.WithLabelValues(source, status).Inc()
}

// RecordCoint counts one cointegration test.
func (m *Metrics) RecordCoint(status string) {
	m.Coint.WithLabelValues(status).Inc()
}

// RecordUpstream counts one upstream request.
func (m *Metrics) RecordUpstream(provider, outcome string) {
	m.Upstream.WithLabelValues(provider, outcome).Inc()
}
