package observability

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Authentication metrics
	AuthAttemptsTotal *prometheus.CounterVec
	AuthFailuresTotal *prometheus.CounterVec

	// Authorization metrics
	PermissionChecksTotal *prometheus.CounterVec
	PermissionDenials     *prometheus.CounterVec

	// Tenant resolution metrics
	TenantResolutionsTotal *prometheus.CounterVec
	MembershipCacheHits    prometheus.Counter
	MembershipCacheMisses  prometheus.Counter

	// RLS connection metrics
	RLSBindingsTotal    *prometheus.CounterVec
	RLSBindingDuration  prometheus.Histogram
	ConnAcquireFailures *prometheus.CounterVec

	// Database pool metrics
	DBConnectionsOpen  prometheus.Gauge
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBWaitCount        prometheus.Gauge
	DBWaitDuration     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strata_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "strata_http_requests_active",
				Help: "Number of HTTP requests currently being served",
			},
		),

		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_auth_attempts_total",
				Help: "Total number of token verification attempts",
			},
			[]string{"outcome"},
		),
		AuthFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_auth_failures_total",
				Help: "Total number of authentication failures by reason",
			},
			[]string{"reason"},
		),

		PermissionChecksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_permission_checks_total",
				Help: "Total number of permission gate evaluations",
			},
			[]string{"outcome"},
		),
		PermissionDenials: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_permission_denials_total",
				Help: "Total number of permission denials by role",
			},
			[]string{"role"},
		),

		TenantResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_tenant_resolutions_total",
				Help: "Total number of tenant resolutions by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		MembershipCacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "strata_membership_cache_hits_total",
				Help: "Total number of membership cache hits",
			},
		),
		MembershipCacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "strata_membership_cache_misses_total",
				Help: "Total number of membership cache misses",
			},
		),

		RLSBindingsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_rls_bindings_total",
				Help: "Total number of RLS session context bindings",
			},
			[]string{"outcome"},
		),
		RLSBindingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "strata_rls_binding_duration_seconds",
				Help:    "Time spent acquiring and binding an RLS connection",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		ConnAcquireFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strata_conn_acquire_failures_total",
				Help: "Total number of failed connection acquisitions by reason",
			},
			[]string{"reason"},
		),

		DBConnectionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "strata_db_connections_open",
				Help: "Number of open database connections",
			},
		),
		DBConnectionsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "strata_db_connections_in_use",
				Help: "Number of database connections currently in use",
			},
		),
		DBConnectionsIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "strata_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBWaitCount: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "strata_db_wait_count",
				Help: "Cumulative number of connection waits",
			},
		),
		DBWaitDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "strata_db_wait_duration_seconds",
				Help: "Cumulative time blocked waiting for a connection",
			},
		),
	}

	return m
}

// Handler returns the HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// CollectDBStats copies database pool statistics into the pool gauges.
// Call periodically from a background goroutine.
func (m *Metrics) CollectDBStats(stats sql.DBStats) {
	m.DBConnectionsOpen.Set(float64(stats.OpenConnections))
	m.DBConnectionsInUse.Set(float64(stats.InUse))
	m.DBConnectionsIdle.Set(float64(stats.Idle))
	m.DBWaitCount.Set(float64(stats.WaitCount))
	m.DBWaitDuration.Set(stats.WaitDuration.Seconds())
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware instruments HTTP handlers with request metrics
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.HTTPRequestsActive.Inc()
		defer m.HTTPRequestsActive.Dec()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}
