// Package tenant provides the multi-tenancy primitives: the role hierarchy,
// route permissions, the per-request tenant context, and membership
// resolution against persistent storage.
//
// Two resolution paths exist. ResolveTrusted copies the role from the token
// claims and is acceptable only where a forged tenant header carries
// tolerable cost. Resolver.ResolveValidated confirms membership against the
// store and takes the stored role as authoritative; it is the default for
// anything sensitive.
package tenant
