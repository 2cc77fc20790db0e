package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/strataops/strata/pkg/auth"
	"github.com/strataops/strata/pkg/contextkeys"
	"github.com/strataops/strata/pkg/httputil"
	"github.com/strataops/strata/pkg/observability"
)

// AuthMiddleware verifies bearer tokens and stores the authenticated
// identity in the request context.
type AuthMiddleware struct {
	verifier *auth.Verifier
	logger   *observability.Logger
	metrics  *observability.Metrics
	optional bool
}

// NewAuthMiddleware creates authentication middleware that rejects requests
// without a valid token.
func NewAuthMiddleware(verifier *auth.Verifier, logger *observability.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// NewOptionalAuthMiddleware creates authentication middleware that lets
// anonymous requests through without an identity. A present but invalid
// token is still rejected.
func NewOptionalAuthMiddleware(verifier *auth.Verifier, logger *observability.Logger, metrics *observability.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
		optional: true,
	}
}

// Handler wraps the next handler with token verification
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.verifier.VerifyHeader(r.Header.Get("Authorization"))
		if err != nil {
			if m.optional && errors.Is(err, auth.ErrMissingHeader) {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, err)
			return
		}

		identity, err := auth.NewIdentity(claims)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		if m.metrics != nil {
			m.metrics.AuthAttemptsTotal.WithLabelValues("ok").Inc()
		}

		ctx := contextkeys.WithIdentity(r.Context(), identity)
		ctx = contextkeys.WithUserID(ctx, identity.UserID.String())
		ctx = contextkeys.WithRole(ctx, identity.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject writes the response for a failed verification. The body carries a
// fixed message per failure class; the detailed cause goes to the log only.
func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	logger := m.logger.WithError(err).WithField("path", r.URL.Path)

	switch {
	case errors.Is(err, auth.ErrNoSecret):
		if m.metrics != nil {
			m.metrics.AuthFailuresTotal.WithLabelValues("misconfigured").Inc()
		}
		logger.Error("token verification misconfigured")
		httputil.WriteInternalError(w, "server configuration error")
	case errors.Is(err, auth.ErrMissingHeader):
		if m.metrics != nil {
			m.metrics.AuthFailuresTotal.WithLabelValues("missing_header").Inc()
		}
		logger.Debug("request without authorization header")
		httputil.WriteUnauthorized(w, auth.ErrMissingHeader.Error())
	case errors.Is(err, auth.ErrMalformedHeader):
		if m.metrics != nil {
			m.metrics.AuthFailuresTotal.WithLabelValues("malformed_header").Inc()
		}
		logger.Debug("malformed authorization header")
		httputil.WriteUnauthorized(w, auth.ErrMalformedHeader.Error())
	default:
		if m.metrics != nil {
			m.metrics.AuthFailuresTotal.WithLabelValues("invalid_token").Inc()
		}
		logger.Warn("token verification failed")
		httputil.WriteUnauthorized(w, auth.ErrInvalidToken.Error())
	}

	if m.metrics != nil {
		m.metrics.AuthAttemptsTotal.WithLabelValues("error").Inc()
	}
}

// IdentityFromContext retrieves the authenticated identity stored by
// AuthMiddleware.
func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
	return identity, ok
}
