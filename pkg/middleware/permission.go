package middleware

import (
	"net/http"

	"github.com/strataops/strata/pkg/httputil"
	"github.com/strataops/strata/pkg/observability"
	"github.com/strataops/strata/pkg/tenant"
)

// RequirePermission gates a route on the resolved role. A request with no
// resolved role is evaluated as Guest, so an unauthenticated request can
// only pass gates that Guest satisfies.
//
// The response body is a fixed generic message. Which permission failed,
// and with what role, is recorded server-side only.
func RequirePermission(perm tenant.Permission, logger *observability.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())

			if !perm.SatisfiedBy(role) {
				if metrics != nil {
					metrics.PermissionChecksTotal.WithLabelValues("denied").Inc()
					metrics.PermissionDenials.WithLabelValues(string(role)).Inc()
				}
				logger.WithFields(map[string]interface{}{
					"path":       r.URL.Path,
					"method":     r.Method,
					"role":       string(role),
					"permission": perm.Description,
				}).Warn("permission denied")
				httputil.WriteForbidden(w, "insufficient permissions")
				return
			}

			if metrics != nil {
				metrics.PermissionChecksTotal.WithLabelValues("allowed").Inc()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route on a minimum role in the hierarchy
func RequireRole(required tenant.Role, logger *observability.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return RequirePermission(
		tenant.MinLevel(required.Level(), "role "+string(required)+" or above"),
		logger,
		metrics,
	)
}
