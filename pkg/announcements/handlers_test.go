package announcements

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strataops/strata/pkg/auth"
	"github.com/strataops/strata/pkg/contextkeys"
	"github.com/strataops/strata/pkg/observability"
	"github.com/strataops/strata/pkg/storage/postgres"
	"github.com/strataops/strata/pkg/tenant"
)

type silentWriter struct{}

func (silentWriter) Write(p []byte) (int, error) { return len(p), nil }

// withTenant injects a resolved tenant context, standing in for the
// middleware chain the production router runs.
func withTenant(tctx tenant.Context, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := contextkeys.WithTenant(r.Context(), tctx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTestHandlers(t *testing.T, opts ...postgres.RLSPoolOption) (*Handlers, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, silentWriter{})
	pool := postgres.NewRLSPool(db, logger, opts...)
	return NewHandlers(pool, logger), mock, func() { db.Close() }
}

func TestListHandlerScopedByTenant(t *testing.T) {
	handlers, mock, cleanup := newTestHandlers(t)
	defer cleanup()

	tctx := tenant.NewContext(uuid.New(), uuid.New(), tenant.RoleResident)

	// Binding happens before the list query on the same connection
	mock.ExpectExec(`SELECT set_request_context\(\$1, \$2, \$3\)`).
		WithArgs(tctx.TenantID.String(), tctx.UserID.String(), false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM announcements`).
		WithArgs(50, 0).
		WillReturnRows(announcementRows(uuid.New()))

	router := mux.NewRouter()
	router.Handle("/announcements", withTenant(tctx, http.HandlerFunc(handlers.List))).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/announcements", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListHandlerWithoutTenantContext(t *testing.T) {
	handlers, mock, cleanup := newTestHandlers(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/announcements", nil)
	rec := httptest.NewRecorder()
	handlers.List(rec, req)

	// No tenant context means no connection is ever acquired
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerReturns503WhenPoolExhausted(t *testing.T) {
	handlers, mock, cleanup := newTestHandlers(t, postgres.WithAcquireTimeout(50*time.Millisecond))
	defer cleanup()

	tctx := tenant.NewContext(uuid.New(), uuid.New(), tenant.RoleResident)

	mock.ExpectExec(`SELECT set_request_context\(\$1, \$2, \$3\)`).
		WithArgs(tctx.TenantID.String(), tctx.UserID.String(), false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Hold the pool's only connection so the request cannot get one
	db := handlers.pool.DB()
	db.SetMaxOpenConns(1)
	holder, err := handlers.pool.Acquire(httptest.NewRequest(http.MethodGet, "/", nil).Context(), tctx)
	require.NoError(t, err)
	defer holder.Release()

	req := httptest.NewRequest(http.MethodGet, "/announcements", nil)
	rec := httptest.NewRecorder()
	withTenant(tctx, http.HandlerFunc(handlers.List)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database connection unavailable")
	require.NoError(t, mock.ExpectationsWereMet())
}

// withIdentity injects a verified identity, standing in for the auth
// middleware.
func withIdentity(identity *auth.Identity, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := contextkeys.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestPinHandlerRecordsPinner(t *testing.T) {
	handlers, mock, cleanup := newTestHandlers(t)
	defer cleanup()

	tctx := tenant.NewContext(uuid.New(), uuid.New(), tenant.RoleManager)
	identity := &auth.Identity{UserID: tctx.UserID}
	id := uuid.New()

	// Binding happens before the pin update on the same connection
	mock.ExpectExec(`SELECT set_request_context\(\$1, \$2, \$3\)`).
		WithArgs(tctx.TenantID.String(), tctx.UserID.String(), false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE announcements SET pinned = TRUE, pinned_at = NOW\(\), pinned_by = \$1`).
		WithArgs(tctx.UserID, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := mux.NewRouter()
	router.Handle("/announcements/{id}/pin",
		withIdentity(identity, withTenant(tctx, http.HandlerFunc(handlers.Pin)))).Methods(http.MethodPost)

	req := httptest.NewRequest(http.MethodPost, "/announcements/"+id.String()+"/pin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUnpinHandlerNotFound(t *testing.T) {
	handlers, mock, cleanup := newTestHandlers(t)
	defer cleanup()

	tctx := tenant.NewContext(uuid.New(), uuid.New(), tenant.RoleManager)
	id := uuid.New()

	mock.ExpectExec(`SELECT set_request_context\(\$1, \$2, \$3\)`).
		WithArgs(tctx.TenantID.String(), tctx.UserID.String(), false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE announcements SET pinned = FALSE`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	router := mux.NewRouter()
	router.Handle("/announcements/{id}/pin",
		withTenant(tctx, http.HandlerFunc(handlers.Unpin))).Methods(http.MethodDelete)

	req := httptest.NewRequest(http.MethodDelete, "/announcements/"+id.String()+"/pin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHandlerNotFound(t *testing.T) {
	handlers, mock, cleanup := newTestHandlers(t)
	defer cleanup()

	tctx := tenant.NewContext(uuid.New(), uuid.New(), tenant.RoleResident)
	id := uuid.New()

	mock.ExpectExec(`SELECT set_request_context\(\$1, \$2, \$3\)`).
		WithArgs(tctx.TenantID.String(), tctx.UserID.String(), false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .+ FROM announcements WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(announcementRows())

	router := mux.NewRouter()
	router.Handle("/announcements/{id}", withTenant(tctx, http.HandlerFunc(handlers.Get))).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/announcements/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHandlerRejectsBadID(t *testing.T) {
	handlers, mock, cleanup := newTestHandlers(t)
	defer cleanup()

	tctx := tenant.NewContext(uuid.New(), uuid.New(), tenant.RoleResident)

	router := mux.NewRouter()
	router.Handle("/announcements/{id}", withTenant(tctx, http.HandlerFunc(handlers.Get))).Methods(http.MethodGet)

	req := httptest.NewRequest(http.MethodGet, "/announcements/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
