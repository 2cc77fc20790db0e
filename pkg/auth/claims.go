package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/strataops/strata/pkg/tenant"
)

// Claims is the decoded payload of an access token. It is constructed once
// per request by the Verifier and never persisted.
type Claims struct {
	// TenantID is the tenant the token was issued for, if any
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	// Role is the user's role in that tenant as recorded at issuance time.
	// Sensitive routes must not trust it; the membership store is authoritative.
	Role tenant.Role `json:"role,omitempty"`
	// Email is the user's email address
	Email string `json:"email"`
	// Name is the user's display name
	Name string `json:"name"`

	jwt.RegisteredClaims
}

// UserID parses the token subject as the user's UUID
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Identity is the authenticated caller of a request: the subset of Claims
// that downstream stages need. It is attached to the request context by the
// auth middleware so later stages can reuse it without re-verifying the token.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	Name     string
	TenantID *uuid.UUID
	Role     tenant.Role
}

// NewIdentity builds an Identity from verified claims
func NewIdentity(claims *Claims) (*Identity, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID:   userID,
		Email:    claims.Email,
		Name:     claims.Name,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}, nil
}
