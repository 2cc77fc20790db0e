package observability

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRegistration(t *testing.T) {
	m := NewMetrics()

	m.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
	m.PermissionDenials.WithLabelValues("guest").Inc()
	m.RLSBindingsTotal.WithLabelValues("ok").Inc()
	m.MembershipCacheHits.Inc()

	if got := testutil.ToFloat64(m.AuthFailuresTotal.WithLabelValues("invalid_token")); got != 1 {
		t.Errorf("Expected 1 auth failure, got %f", got)
	}
	if got := testutil.ToFloat64(m.RLSBindingsTotal.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected 1 RLS binding, got %f", got)
	}
}

func TestMetricsHandlerExposesSeries(t *testing.T) {
	m := NewMetrics()
	m.ConnAcquireFailures.WithLabelValues("pool_exhausted").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from metrics endpoint, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "strata_conn_acquire_failures_total") {
		t.Error("Expected acquire failure series in metrics output")
	}
}

func TestCollectDBStats(t *testing.T) {
	m := NewMetrics()
	m.CollectDBStats(sql.DBStats{
		OpenConnections: 7,
		InUse:           3,
		Idle:            4,
		WaitCount:       12,
		WaitDuration:    2 * time.Second,
	})

	if got := testutil.ToFloat64(m.DBConnectionsOpen); got != 7 {
		t.Errorf("Expected 7 open connections, got %f", got)
	}
	if got := testutil.ToFloat64(m.DBConnectionsInUse); got != 3 {
		t.Errorf("Expected 3 in-use connections, got %f", got)
	}
	if got := testutil.ToFloat64(m.DBWaitDuration); got != 2 {
		t.Errorf("Expected 2s wait duration, got %f", got)
	}
}

func TestHTTPMiddlewareRecordsStatus(t *testing.T) {
	m := NewMetrics()

	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/announcements", nil))

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/announcements", "403"))
	if got != 1 {
		t.Errorf("Expected 1 request counted with status 403, got %f", got)
	}
}
