// Package metrics exposes Prometheus instrumentation: domain counters for
// link creation and clicks, plus HTTP request counters and latency histograms.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the process-local registry and its collectors. A nil *Metrics
// is a valid no-op collaborator, so components can take one without guarding.
type Metrics struct {
	registry *prometheus.Registry

	urlsCreated  prometheus.Counter
	urlClicks    prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Metrics instance backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		urlsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "urls_created_total",
			Help: "Total number of short links created.",
		}),
		urlClicks: factory.NewCounter(prometheus.CounterOpts{
			Name: "url_clicks_total",
			Help: "Total number of recorded short link clicks.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

// URLCreated counts one successfully created short link.
func (m *Metrics) URLCreated() {
	if m == nil {
		return
	}
	m.urlsCreated.Inc()
}

// URLClicked counts one recorded click.
func (m *Metrics) URLClicked() {
	if m == nil {
		return
	}
	m.urlClicks.Inc()
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records one counter increment and one latency observation per
// request. Safe on a nil receiver.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.httpRequests.WithLabelValues(r.Method, strconv.Itoa(rw.status)).Inc()
			m.httpDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
