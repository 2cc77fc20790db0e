package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/strataops/strata/pkg/observability"
	"github.com/strataops/strata/pkg/tenant"
)

var (
	// ErrPoolExhausted indicates no connection could be checked out before
	// the acquire timeout. Handlers translate this into a 503.
	ErrPoolExhausted = errors.New("database connection unavailable")

	// ErrBindFailed indicates the security context could not be set on the
	// checked-out connection. Handlers translate this into a 500.
	ErrBindFailed = errors.New("failed to set security context")

	// ErrGuardReleased indicates a query was attempted on a guard after
	// Release.
	ErrGuardReleased = errors.New("connection guard already released")
)

// setContextQuery binds tenant, user and bypass onto the session. The
// database function stores them in session-local variables that RLS policies
// read.
const setContextQuery = "SELECT set_request_context($1, $2, $3)"

// clearContextQuery resets the session variables for public-path work.
const clearContextQuery = "SELECT clear_request_context()"

// Executor is the query surface handlers use. Both Guard and *sql.DB satisfy
// it, which keeps repository code testable against sqlmock.
type Executor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RLSPool hands out database connections with the request's security context
// bound to the underlying session.
//
// Acquire is the only way to get a tenant-scoped connection. The binding runs
// on the exact physical connection returned to the caller; running it through
// the shared pool handle would bind an arbitrary connection and leave the
// caller's queries unscoped.
type RLSPool struct {
	db             *sql.DB
	acquireTimeout time.Duration
	logger         *observability.Logger
	metrics        *observability.Metrics
}

// RLSPoolOption configures an RLSPool
type RLSPoolOption func(*RLSPool)

// WithMetrics attaches binding and acquisition metrics
func WithMetrics(m *observability.Metrics) RLSPoolOption {
	return func(p *RLSPool) {
		p.metrics = m
	}
}

// WithAcquireTimeout bounds how long Acquire waits for a free connection
func WithAcquireTimeout(d time.Duration) RLSPoolOption {
	return func(p *RLSPool) {
		p.acquireTimeout = d
	}
}

// NewRLSPool creates an RLS-binding pool over an open database handle
func NewRLSPool(db *sql.DB, logger *observability.Logger, opts ...RLSPoolOption) *RLSPool {
	pool := &RLSPool{
		db:             db,
		acquireTimeout: 5 * time.Second,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// DB exposes the shared pool handle for work that must not carry a tenant
// context, such as membership lookups and health probes.
func (p *RLSPool) DB() *sql.DB {
	return p.db
}

// Acquire checks a dedicated connection out of the pool and binds the
// request's security context onto its session. The caller owns the returned
// guard and must call Release exactly once.
//
// The context is re-bound unconditionally on every acquire, so a connection
// returned to the pool with stale session variables can never leak another
// tenant's scope into this request.
func (p *RLSPool) Acquire(ctx context.Context, tctx tenant.Context) (*Guard, error) {
	start := time.Now()

	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ConnAcquireFailures.WithLabelValues("pool_exhausted").Inc()
		}
		p.logger.WithError(err).WithFields(map[string]interface{}{
			"tenant_id": tctx.TenantID.String(),
			"user_id":   tctx.UserID.String(),
		}).Warn("connection acquisition failed")
		return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, err)
	}

	bypass := tctx.BypassesRLS()
	_, err = conn.ExecContext(ctx, setContextQuery, tctx.TenantID.String(), tctx.UserID.String(), bypass)
	if err != nil {
		// The session is in an unknown state, so the physical connection
		// is discarded rather than returned to the pool.
		discard(conn)
		if p.metrics != nil {
			p.metrics.RLSBindingsTotal.WithLabelValues("error").Inc()
			p.metrics.ConnAcquireFailures.WithLabelValues("bind_failed").Inc()
		}
		p.logger.WithError(err).WithFields(map[string]interface{}{
			"tenant_id": tctx.TenantID.String(),
			"user_id":   tctx.UserID.String(),
		}).Error("security context binding failed")
		return nil, fmt.Errorf("%w: %v", ErrBindFailed, err)
	}

	if p.metrics != nil {
		p.metrics.RLSBindingsTotal.WithLabelValues("ok").Inc()
		p.metrics.RLSBindingDuration.Observe(time.Since(start).Seconds())
	}

	return &Guard{conn: conn, tctx: tctx}, nil
}

// AcquirePublic checks out a connection with the session variables cleared,
// for endpoints that run before authentication.
func (p *RLSPool) AcquirePublic(ctx context.Context) (*Guard, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ConnAcquireFailures.WithLabelValues("pool_exhausted").Inc()
		}
		return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, err)
	}

	if _, err := conn.ExecContext(ctx, clearContextQuery); err != nil {
		discard(conn)
		if p.metrics != nil {
			p.metrics.RLSBindingsTotal.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("%w: %v", ErrBindFailed, err)
	}

	return &Guard{conn: conn, tctx: tenant.Context{Role: tenant.RoleGuest}, public: true}, nil
}

// discard marks the underlying driver connection as bad so database/sql
// closes it instead of returning it to the pool.
func discard(conn *sql.Conn) {
	conn.Raw(func(interface{}) error { return driver.ErrBadConn })
	conn.Close()
}

// Guard owns a dedicated database connection with a bound security context.
//
// Release returns the connection to the pool without clearing the session
// variables. Stale state is harmless because every acquisition path re-binds
// or clears the session before handing the connection out.
type Guard struct {
	conn     *sql.Conn
	tctx     tenant.Context
	public   bool
	released bool
	mu       sync.Mutex
}

// TenantID returns the tenant the session is scoped to
func (g *Guard) TenantID() string {
	return g.tctx.TenantID.String()
}

// UserID returns the user the session is scoped to
func (g *Guard) UserID() string {
	return g.tctx.UserID.String()
}

// Role returns the effective role for this request
func (g *Guard) Role() tenant.Role {
	return g.tctx.Role
}

// HasRole reports whether the bound role meets or exceeds the required role
func (g *Guard) HasRole(required tenant.Role) bool {
	return g.tctx.HasRole(required)
}

// BypassesRLS reports whether the session was bound with RLS bypass
func (g *Guard) BypassesRLS() bool {
	return !g.public && g.tctx.BypassesRLS()
}

// QueryContext runs a query on the scoped connection
func (g *Guard) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	g.mu.Lock()
	released := g.released
	g.mu.Unlock()
	if released {
		return nil, ErrGuardReleased
	}
	return g.conn.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query on the scoped connection.
//
// sql.Row cannot carry a caller-supplied error, so unlike the other executor
// methods this one cannot surface ErrGuardReleased. After Release the
// underlying connection is closed and Scan reports sql.ErrConnDone.
func (g *Guard) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return g.conn.QueryRowContext(ctx, query, args...)
}

// ExecContext runs a statement on the scoped connection
func (g *Guard) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	g.mu.Lock()
	released := g.released
	g.mu.Unlock()
	if released {
		return nil, ErrGuardReleased
	}
	return g.conn.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction on the scoped connection. The transaction
// inherits the bound session variables.
func (g *Guard) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	g.mu.Lock()
	released := g.released
	g.mu.Unlock()
	if released {
		return nil, ErrGuardReleased
	}
	return g.conn.BeginTx(ctx, opts)
}

// Release returns the connection to the pool. Safe to call more than once;
// only the first call has any effect.
func (g *Guard) Release() error {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return nil
	}
	g.released = true
	g.mu.Unlock()

	return g.conn.Close()
}
