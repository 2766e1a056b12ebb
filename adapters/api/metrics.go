package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the API
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	VectorTablesTotal   *prometheus.CounterVec
	CalculationFailures *prometheus.CounterVec
	UnknownVectors      *prometheus.CounterVec
}

// NewMetrics creates the collectors on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enstats_http_requests_total",
				Help: "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "enstats_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"route"},
		),
		VectorTablesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enstats_vector_tables_total",
				Help: "Vector tables returned, by ensemble",
			},
			[]string{"ensemble"},
		),
		CalculationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enstats_calculation_failures_total",
				Help: "Calculated vectors that could not be evaluated, by ensemble",
			},
			[]string{"ensemble"},
		),
		UnknownVectors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enstats_unknown_vectors_total",
				Help: "Requested vectors no derivation path could produce, by ensemble",
			},
			[]string{"ensemble"},
		),
	}
	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.VectorTablesTotal,
		m.CalculationFailures,
		m.UnknownVectors,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
