// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sai"

type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	submissions        *prometheus.CounterVec
	sideEffectFailures *prometheus.CounterVec
	suspiciousRequests *prometheus.CounterVec
	rateLimited        prometheus.Counter
	emailAttempts      *prometheus.CounterVec
}

// New creates a Metrics instance backed by its own registry so tests can
// build as many as they like.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Accepted form submissions by kind.",
		}, []string{"kind"}),
		sideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Failed best-effort steps (storage, events, email) by step.",
		}, []string{"step"}),
		suspiciousRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_requests_total",
			Help:      "Requests matching a known attack signature.",
		}, []string{"pattern"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		emailAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_send_attempts_total",
			Help:      "Email transport attempts by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.submissions,
		m.sideEffectFailures,
		m.suspiciousRequests,
		m.rateLimited,
		m.emailAttempts,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// The recorders below accept a nil receiver so components can be built
// without metrics in tests.

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) IncSubmission(kind string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncSideEffectFailure(step string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(step).Inc()
}

func (m *Metrics) IncSuspicious(pattern string) {
	if m == nil {
		return
	}
	m.suspiciousRequests.WithLabelValues(pattern).Inc()
}

func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) IncEmailAttempt(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.emailAttempts.WithLabelValues(result).Inc()
}
