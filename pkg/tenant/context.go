package tenant

import "github.com/google/uuid"

// Context is the resolved tenant context for a single request: which tenant
// the request targets, which user issued it, and the user's role in that
// tenant. A Context is never mutated after construction; a new request gets
// a new Context.
type Context struct {
	TenantID uuid.UUID
	UserID   uuid.UUID
	Role     Role
}

// NewContext creates a tenant context
func NewContext(tenantID, userID uuid.UUID, role Role) Context {
	return Context{
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
	}
}

// HasRole reports whether the context's role is at least the required role's
// level in the hierarchy
func (c Context) HasRole(required Role) bool {
	return c.Role.Level() >= required.Level()
}

// BypassesRLS reports whether this context's role bypasses row filtering
func (c Context) BypassesRLS() bool {
	return c.Role.BypassesRLS()
}
