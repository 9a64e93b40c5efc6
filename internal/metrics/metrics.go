package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	GuardDecisionsTotal *prometheus.CounterVec

	// Audit metrics
	AuditEventsTotal   *prometheus.CounterVec
	AuditPurgedTotal   prometheus.Counter
	AuditWriteFailures prometheus.Counter
}

// New creates a registry with the process and Go collectors plus the
// application metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taskboard_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_guard_decisions_total",
				Help: "Guard chain outcomes by chain and failure type",
			},
			[]string{"chain", "outcome"},
		),

		AuditEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taskboard_audit_events_total",
				Help: "Audit events written by action",
			},
			[]string{"action"},
		),
		AuditPurgedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_audit_purged_total",
				Help: "Audit events removed by retention",
			},
		),
		AuditWriteFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "taskboard_audit_write_failures_total",
				Help: "Audit events that could not be written",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GuardDecisionsTotal,
		m.AuditEventsTotal,
		m.AuditPurgedTotal,
		m.AuditWriteFailures,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterPool exports connection pool statistics
func (m *Metrics) RegisterPool(pool *pgxpool.Pool) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "taskboard_db_connections_acquired",
			Help: "Number of connections currently in use",
		}, func() float64 { return float64(pool.Stat().AcquiredConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "taskboard_db_connections_idle",
			Help: "Number of idle connections",
		}, func() float64 { return float64(pool.Stat().IdleConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "taskboard_db_connections_total",
			Help: "Total number of open connections",
		}, func() float64 { return float64(pool.Stat().TotalConns()) }),
	)
}

// GuardDecision counts one guard chain outcome
func (m *Metrics) GuardDecision(chain, outcome string) {
	m.GuardDecisionsTotal.WithLabelValues(chain, outcome).Inc()
}

// AuditEvent counts one written audit event
func (m *Metrics) AuditEvent(action string) {
	m.AuditEventsTotal.WithLabelValues(action).Inc()
}

// AuditFailure counts one audit write that failed
func (m *Metrics) AuditFailure() {
	m.AuditWriteFailures.Inc()
}

// AuditPurged counts events deleted by the retention job
func (m *Metrics) AuditPurged(n int64) {
	m.AuditPurgedTotal.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware instruments HTTP requests. Requests are labelled with the chi
// route pattern so ids in the path do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
