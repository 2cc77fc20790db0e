package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/strataops/strata/pkg/contextkeys"
	"github.com/strataops/strata/pkg/httputil"
	"github.com/strataops/strata/pkg/observability"
	"github.com/strataops/strata/pkg/tenant"
)

// TenantHeader is the request header carrying the target tenant
const TenantHeader = "X-Tenant-ID"

// TenantMiddleware resolves the request's tenant context from the tenant
// header and the authenticated identity. With a resolver configured it
// validates the user's membership against the store and the stored role
// replaces the token role; without one it trusts the token.
type TenantMiddleware struct {
	resolver    *tenant.Resolver
	logger      *observability.Logger
	metrics     *observability.Metrics
	publicPaths map[string]struct{}
}

// TenantOption configures a TenantMiddleware
type TenantOption func(*TenantMiddleware)

// WithMembershipValidation enables authoritative membership lookups
func WithMembershipValidation(resolver *tenant.Resolver) TenantOption {
	return func(m *TenantMiddleware) {
		m.resolver = resolver
	}
}

// WithPublicPaths marks path prefixes that skip tenant resolution entirely
func WithPublicPaths(paths ...string) TenantOption {
	return func(m *TenantMiddleware) {
		for _, p := range paths {
			m.publicPaths[p] = struct{}{}
		}
	}
}

// NewTenantMiddleware creates tenant resolution middleware
func NewTenantMiddleware(logger *observability.Logger, metrics *observability.Metrics, opts ...TenantOption) *TenantMiddleware {
	m := &TenantMiddleware{
		logger:      logger,
		metrics:     metrics,
		publicPaths: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// isPublic reports whether the path is on the allowlist
func (m *TenantMiddleware) isPublic(path string) bool {
	if _, ok := m.publicPaths[path]; ok {
		return true
	}
	for prefix := range m.publicPaths {
		if strings.HasSuffix(prefix, "/") && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Handler wraps the next handler with tenant resolution
func (m *TenantMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		header := r.Header.Get(TenantHeader)

		mode := "trusted"
		var tctx tenant.Context
		var err error
		if m.resolver != nil {
			mode = "validated"
			tctx, err = m.resolver.ResolveValidated(r.Context(), header, identity.UserID, identity.Role)
		} else {
			tctx, err = tenant.ResolveTrusted(header, identity.UserID, identity.Role)
		}

		if err != nil {
			m.rejectResolution(w, r, identity.UserID.String(), mode, err)
			return
		}

		if m.metrics != nil {
			m.metrics.TenantResolutionsTotal.WithLabelValues(mode, "ok").Inc()
		}

		ctx := contextkeys.WithTenant(r.Context(), tctx)
		ctx = contextkeys.WithRole(ctx, tctx.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *TenantMiddleware) rejectResolution(w http.ResponseWriter, r *http.Request, userID, mode string, err error) {
	logger := m.logger.WithError(err).WithFields(map[string]interface{}{
		"path":    r.URL.Path,
		"user_id": userID,
		"mode":    mode,
	})

	switch {
	case errors.Is(err, tenant.ErrInvalidTenantHeader):
		if m.metrics != nil {
			m.metrics.TenantResolutionsTotal.WithLabelValues(mode, "bad_header").Inc()
		}
		logger.Debug("tenant header missing or malformed")
		httputil.WriteBadRequest(w, tenant.ErrInvalidTenantHeader.Error())
	case errors.Is(err, tenant.ErrNotMember):
		// Non-members get the same 403 as insufficient roles so a probe
		// cannot distinguish "wrong tenant" from "wrong role".
		if m.metrics != nil {
			m.metrics.TenantResolutionsTotal.WithLabelValues(mode, "not_member").Inc()
		}
		logger.Warn("membership validation rejected request")
		httputil.WriteForbidden(w, "insufficient permissions")
	default:
		if m.metrics != nil {
			m.metrics.TenantResolutionsTotal.WithLabelValues(mode, "error").Inc()
		}
		logger.Error("tenant resolution failed")
		httputil.WriteInternalError(w, "internal server error")
	}
}

// TenantFromContext retrieves the tenant context stored by TenantMiddleware
func TenantFromContext(ctx context.Context) (tenant.Context, bool) {
	tctx, ok := ctx.Value(contextkeys.TenantKey).(tenant.Context)
	return tctx, ok
}

// RoleFromContext retrieves the effective role for the request, failing
// closed to Guest when no role was resolved.
func RoleFromContext(ctx context.Context) tenant.Role {
	if role, ok := ctx.Value(contextkeys.RoleKey).(tenant.Role); ok && role.Valid() {
		return role
	}
	return tenant.RoleGuest
}
