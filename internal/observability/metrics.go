package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/Glebrito/Analisediaria/internal/jobs"
)

// Metrics collects the Prometheus metrics of the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	reportDuration  *prometheus.HistogramVec
	reportFailures  *prometheus.CounterVec
	degradations    *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics builds a private registry with HTTP, engine and job metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analise_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analise_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	reports := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analise_report_duration_seconds",
		Help:    "Commission report build duration by category and outcome.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"category", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analise_report_failures_total",
		Help: "Commission reports that failed by category.",
	}, []string{"category"})
	degradations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analise_engine_degradations_total",
		Help: "Rows the engine defaulted or skipped, by kind and table.",
	}, []string{"kind", "table"})
	registry.MustRegister(requests, duration, reports, failures, degradations)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		reportDuration:  reports,
		reportFailures:  failures,
		degradations:    degradations,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveReport records one report run.
func (m *Metrics) ObserveReport(category string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	if category == "" {
		category = "all"
	}
	status := "success"
	if err != nil {
		status = "failure"
		m.reportFailures.WithLabelValues(category).Inc()
	}
	m.reportDuration.WithLabelValues(category, status).Observe(elapsed.Seconds())
}

// RecordDegradation counts rows the engine defaulted or skipped.
func (m *Metrics) RecordDegradation(kind, table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.degradations.WithLabelValues(kind, table).Add(float64(n))
}

// Jobs returns the job collectors bound to this registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer exposes the registry for extra collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
