package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidTenantHeader indicates the tenant header was absent or not a
// valid tenant identifier
var ErrInvalidTenantHeader = errors.New("missing or invalid tenant header")

// ResolveTrusted builds a tenant context from the request-supplied tenant
// header and the token-derived user and role. The role comes straight from
// the token, defaulting to Guest when the token carries none - a deliberate
// fail-closed default. Routes that cannot tolerate a forged token role must
// use Resolver.ResolveValidated instead.
func ResolveTrusted(tenantHeader string, userID uuid.UUID, tokenRole Role) (Context, error) {
	tenantID, err := uuid.Parse(tenantHeader)
	if err != nil {
		return Context{}, ErrInvalidTenantHeader
	}

	role := tokenRole
	if !role.Valid() {
		role = RoleGuest
	}

	return NewContext(tenantID, userID, role), nil
}

// ResolveOptional is ResolveTrusted for endpoints that behave correctly with
// or without tenant context. Any failure collapses into an empty result.
// Never use this on a write path or any path that feeds a permission check.
func ResolveOptional(tenantHeader string, userID uuid.UUID, tokenRole Role) (Context, bool) {
	tc, err := ResolveTrusted(tenantHeader, userID, tokenRole)
	if err != nil {
		return Context{}, false
	}
	return tc, true
}

// Resolver resolves tenant contexts with membership validation against
// persistent storage. This is the authoritative path: the role recorded in
// the membership store always replaces whatever the token claimed.
type Resolver struct {
	store MembershipStore
}

// NewResolver creates a resolver backed by the given membership store
func NewResolver(store MembershipStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveValidated resolves the tenant header, then confirms against the
// membership store that the user actually belongs to the tenant. A missing
// membership row fails with ErrNotMember (mapped to 403, never 404, so tenant
// existence is not leaked to non-members). On success the store's role
// replaces the token role.
func (r *Resolver) ResolveValidated(ctx context.Context, tenantHeader string, userID uuid.UUID, tokenRole Role) (Context, error) {
	tc, err := ResolveTrusted(tenantHeader, userID, tokenRole)
	if err != nil {
		return Context{}, err
	}

	role, err := r.store.Lookup(ctx, tc.TenantID, userID)
	if err != nil {
		if errors.Is(err, ErrNotMember) {
			return Context{}, ErrNotMember
		}
		return Context{}, fmt.Errorf("membership lookup failed: %w", err)
	}

	return NewContext(tc.TenantID, userID, role), nil
}
