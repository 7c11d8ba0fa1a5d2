package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsActive  prometheus.Gauge

	// Auth business metrics
	loginsTotal           *prometheus.CounterVec
	signupsTotal          prometheus.Counter
	codesIssuedTotal      *prometheus.CounterVec
	codesConsumedTotal    *prometheus.CounterVec
	rateLimitRejectsTotal prometheus.Counter

	// Storage metrics
	dbConnectionsOpen  prometheus.Gauge
	dbConnectionsInUse prometheus.Gauge
	dbConnectionsIdle  prometheus.Gauge
	userCacheHits      prometheus.Counter
	userCacheMisses    prometheus.Counter
}

// NewMetrics creates and registers all collectors on the given registry.
// Pass nil to create a fresh registry.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keygate_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpRequestsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "keygate_http_requests_active",
				Help: "Number of HTTP requests currently being served",
			},
		),

		loginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"status"},
		),
		signupsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_signups_total",
				Help: "Total number of successful signups",
			},
		),
		codesIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_verification_codes_issued_total",
				Help: "Verification codes issued by purpose",
			},
			[]string{"purpose"},
		),
		codesConsumedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keygate_verification_codes_consumed_total",
				Help: "Verification code consumption attempts by result",
			},
			[]string{"purpose", "result"},
		),
		rateLimitRejectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_rate_limit_rejects_total",
				Help: "Requests rejected by the login rate limiter",
			},
		),

		dbConnectionsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "keygate_db_connections_open",
				Help: "Open connections in the database pool",
			},
		),
		dbConnectionsInUse: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "keygate_db_connections_in_use",
				Help: "Database connections currently in use",
			},
		),
		dbConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "keygate_db_connections_idle",
				Help: "Idle connections in the database pool",
			},
		),
		userCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_user_cache_hits_total",
				Help: "User read-through cache hits",
			},
		),
		userCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "keygate_user_cache_misses_total",
				Help: "User read-through cache misses",
			},
		),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.httpRequestsActive,
		m.loginsTotal,
		m.signupsTotal,
		m.codesIssuedTotal,
		m.codesConsumedTotal,
		m.rateLimitRejectsTotal,
		m.dbConnectionsOpen,
		m.dbConnectionsInUse,
		m.dbConnectionsIdle,
		m.userCacheHits,
		m.userCacheMisses,
	)

	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordLogin increments the login counter with the given outcome,
// e.g. "success", "invalid_password", "not_found".
func (m *Metrics) RecordLogin(status string) {
	m.loginsTotal.WithLabelValues(status).Inc()
}

// RecordSignup increments the signup counter.
func (m *Metrics) RecordSignup() {
	m.signupsTotal.Inc()
}

// RecordCodeIssued increments the code-issued counter for a purpose,
// e.g. "email_verification" or "password_reset".
func (m *Metrics) RecordCodeIssued(purpose string) {
	m.codesIssuedTotal.WithLabelValues(purpose).Inc()
}

// RecordCodeConsumed increments the code-consumed counter with the result,
// e.g. "ok", "expired", "mismatch", "not_generated".
func (m *Metrics) RecordCodeConsumed(purpose, result string) {
	m.codesConsumedTotal.WithLabelValues(purpose, result).Inc()
}

// RecordRateLimitReject increments the rate limiter rejection counter.
func (m *Metrics) RecordRateLimitReject() {
	m.rateLimitRejectsTotal.Inc()
}

// RecordCacheHit increments the user cache hit counter.
func (m *Metrics) RecordCacheHit() {
	m.userCacheHits.Inc()
}

// RecordCacheMiss increments the user cache miss counter.
func (m *Metrics) RecordCacheMiss() {
	m.userCacheMisses.Inc()
}

// ObserveDBStats copies the current pool stats into the DB gauges.
func (m *Metrics) ObserveDBStats(stats sql.DBStats) {
	m.dbConnectionsOpen.Set(float64(stats.OpenConnections))
	m.dbConnectionsInUse.Set(float64(stats.InUse))
	m.dbConnectionsIdle.Set(float64(stats.Idle))
}

// metricsResponseWriter captures the status code for metric labels.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request counts, latency, and in-flight gauge
// for every request passing through it. The path label uses the routed
// pattern when available so cardinality stays bounded.
func (m *Metrics) HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.httpRequestsActive.Inc()
		defer m.httpRequestsActive.Dec()

		wrapped := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := routePattern(r)
		m.httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern returns the mux route template for the request, falling back
// to the raw path for unmatched requests.
func routePattern(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

// RegisterMetricsEndpoint mounts /metrics on the given mux.
func (m *Metrics) RegisterMetricsEndpoint(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
