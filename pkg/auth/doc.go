// Package auth provides bearer token verification and the authenticated
// identity value attached to requests.
//
// Only verification lives here. Token issuance (login, refresh, key rotation)
// belongs to the auth service; this package consumes its output.
//
// The verifier deliberately collapses every failure mode (bad signature,
// expired token, malformed payload) into a single generic error so clients
// cannot probe which check failed.
package auth
