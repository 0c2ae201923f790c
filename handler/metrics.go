package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbland/emailcheck/ops"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for a single server.
//
// Each Metrics has its own registry, so tests may create as many as they need.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry         *prometheus.Registry
	Validations      *prometheus.CounterVec
	BatchSize        prometheus.Histogram
	MxLookups        *prometheus.CounterVec
	HttpRequests     *prometheus.CounterVec
	HttpRequestTimes *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Validations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "emailcheck",
				Name:      "validations_total",
				Help:      "Validated addresses by result reason",
			},
			[]string{"reason"},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "emailcheck",
				Name:      "batch_size",
				Help:      "Number of candidate addresses per upload",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		MxLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "emailcheck",
				Name:      "mx_cache_lookups_total",
				Help:      "MX lookups by result: hit, miss, or error",
			},
			[]string{"result"},
		),
		HttpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "emailcheck",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HttpRequestTimes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "emailcheck",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
			},
			[]string{"method", "route"},
		),
	}
}

// ObserveSummary records the size and per-reason counts of a batch.
func (m *Metrics) ObserveSummary(summary *ops.ValidationSummary) {
	if m == nil {
		return
	}
	m.BatchSize.Observe(float64(summary.Total))

	for reason, count := range summary.CountByReason() {
		m.Validations.WithLabelValues(reason).Add(float64(count))
	}
}

func (m *Metrics) mxLookups() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.MxLookups
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// instrument records the count and duration of each request by its route
// pattern, so that path parameters don't create new label values.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := strconv.Itoa(responseStatus(ww))
		m.HttpRequests.WithLabelValues(r.Method, route, status).Inc()
		m.HttpRequestTimes.WithLabelValues(r.Method, route).Observe(
			time.Since(start).Seconds(),
		)
	})
}

// responseStatus returns the status written through ww, where a handler that
// never called WriteHeader implicitly responded with 200.
func responseStatus(ww middleware.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
