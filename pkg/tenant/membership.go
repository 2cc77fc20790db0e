package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotMember indicates the user has no membership in the tenant
var ErrNotMember = errors.New("user is not a member of tenant")

// MembershipStore answers "what role does this user hold in this tenant"
// from persistent storage. Implementations return ErrNotMember when no
// membership row exists.
type MembershipStore interface {
	Lookup(ctx context.Context, tenantID, userID uuid.UUID) (Role, error)
}

// PostgresMembershipStore reads memberships from the tenant_members table.
//
// Lookups run on the shared pool without any RLS session context: membership
// must be checkable before a tenant context exists, and the tenant_members
// table carries no RLS policy for exactly that reason.
type PostgresMembershipStore struct {
	db *sql.DB
}

// NewPostgresMembershipStore creates a membership store backed by the given database
func NewPostgresMembershipStore(db *sql.DB) *PostgresMembershipStore {
	return &PostgresMembershipStore{db: db}
}

// Lookup returns the user's role in the tenant
func (s *PostgresMembershipStore) Lookup(ctx context.Context, tenantID, userID uuid.UUID) (Role, error) {
	query := `
		SELECT role
		FROM tenant_members
		WHERE tenant_id = $1 AND user_id = $2
	`

	var roleStr string
	err := s.db.QueryRowContext(ctx, query, tenantID, userID).Scan(&roleStr)
	if err == sql.ErrNoRows {
		return "", ErrNotMember
	}
	if err != nil {
		return "", fmt.Errorf("failed to query membership: %w", err)
	}

	role, err := ParseRole(roleStr)
	if err != nil {
		return "", fmt.Errorf("membership row has invalid role: %w", err)
	}

	return role, nil
}
