// Package postgres provides the PostgreSQL connection layer.
//
// The shared *sql.DB handle is used only for unscoped work. Request handlers
// go through RLSPool.Acquire, which checks out a dedicated physical
// connection and binds the request's tenant, user and bypass flag onto its
// session before any query runs. Row-level security policies in the database
// read those session variables, so a query on an unbound connection sees no
// tenant's rows at all.
package postgres
