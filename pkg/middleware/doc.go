// Package middleware implements the request security pipeline: token
// verification, tenant resolution, and permission gating. The stages
// communicate through typed context keys, so each stage can be composed
// per route group.
//
// Ordering matters: AuthMiddleware must run before TenantMiddleware, and
// both before any RequirePermission gate. Handlers downstream acquire their
// database connection from the RLS pool using the tenant context the chain
// resolved.
package middleware
