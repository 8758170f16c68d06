package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for outbound API traffic. All methods
// are safe on a nil receiver so components can run unmetered in tests.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	DegradedTotal   *prometheus.CounterVec
}

// New constructs and registers all collectors on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_requests_total",
			Help: "Outbound API request attempts by target and status class.",
		},
		[]string{"target", "class"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbound_request_duration_seconds",
			Help:    "Outbound API request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"target"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_retries_total",
			Help: "Retry attempts scheduled against outbound APIs.",
		},
		[]string{"target"},
	)
	degraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_degraded_total",
			Help: "Requests that exhausted retries and degraded to an empty result.",
		},
		[]string{"target"},
	)

	registry.MustRegister(requests, duration, retries, degraded)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: duration,
		RetriesTotal:    retries,
		DegradedTotal:   degraded,
	}
}

// IncRequest counts one request attempt. class is "2xx", "4xx", "5xx",
// "429" or "transport".
func (m *Metrics) IncRequest(target, class string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(target, class).Inc()
}

// ObserveDuration records one request attempt's latency.
func (m *Metrics) ObserveDuration(target string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(target).Observe(d.Seconds())
}

// IncRetry counts a scheduled retry.
func (m *Metrics) IncRetry(target string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(target).Inc()
}

// IncDegraded counts a request that gave up and returned an empty result.
func (m *Metrics) IncDegraded(target string) {
	if m == nil {
		return
	}
	m.DegradedTotal.WithLabelValues(target).Inc()
}
