package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTrusted(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	t.Run("valid header and role", func(t *testing.T) {
		tc, err := ResolveTrusted(tenantID.String(), userID, RoleManager)
		require.NoError(t, err)
		assert.Equal(t, tenantID, tc.TenantID)
		assert.Equal(t, userID, tc.UserID)
		assert.Equal(t, RoleManager, tc.Role)
	})

	t.Run("missing header", func(t *testing.T) {
		_, err := ResolveTrusted("", userID, RoleManager)
		assert.ErrorIs(t, err, ErrInvalidTenantHeader)
	})

	t.Run("malformed header", func(t *testing.T) {
		_, err := ResolveTrusted("not-a-uuid", userID, RoleManager)
		assert.ErrorIs(t, err, ErrInvalidTenantHeader)
	})

	t.Run("invalid role falls back to guest", func(t *testing.T) {
		tc, err := ResolveTrusted(tenantID.String(), userID, Role("forged_role"))
		require.NoError(t, err)
		assert.Equal(t, RoleGuest, tc.Role)
	})

	t.Run("empty role falls back to guest", func(t *testing.T) {
		tc, err := ResolveTrusted(tenantID.String(), userID, "")
		require.NoError(t, err)
		assert.Equal(t, RoleGuest, tc.Role)
	})
}

func TestResolveOptional(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	tc, ok := ResolveOptional(tenantID.String(), userID, RoleOwner)
	assert.True(t, ok)
	assert.Equal(t, tenantID, tc.TenantID)

	_, ok = ResolveOptional("", userID, RoleOwner)
	assert.False(t, ok)
}

func TestContextHasRole(t *testing.T) {
	tc := NewContext(uuid.New(), uuid.New(), RoleManager)

	assert.True(t, tc.HasRole(RoleManager))
	assert.True(t, tc.HasRole(RoleOwner))
	assert.True(t, tc.HasRole(RoleGuest))
	assert.False(t, tc.HasRole(RoleOrgAdmin))
	assert.False(t, tc.HasRole(RoleSuperAdmin))
}

const membershipQuery = `SELECT role\s+FROM tenant_members\s+WHERE tenant_id = \$1 AND user_id = \$2`

func TestResolveValidated(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()

	t.Run("store role overrides token role", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(membershipQuery).
			WithArgs(tenantID, userID).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("resident"))

		resolver := NewResolver(NewPostgresMembershipStore(db))

		// Token claims org_admin but the store says resident
		tc, err := resolver.ResolveValidated(context.Background(), tenantID.String(), userID, RoleOrgAdmin)
		require.NoError(t, err)
		assert.Equal(t, RoleResident, tc.Role)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-member is rejected", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(membershipQuery).
			WithArgs(tenantID, userID).
			WillReturnRows(sqlmock.NewRows([]string{"role"}))

		resolver := NewResolver(NewPostgresMembershipStore(db))

		_, err = resolver.ResolveValidated(context.Background(), tenantID.String(), userID, RoleOrgAdmin)
		assert.ErrorIs(t, err, ErrNotMember)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid header rejected before any lookup", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		resolver := NewResolver(NewPostgresMembershipStore(db))

		_, err = resolver.ResolveValidated(context.Background(), "nope", userID, RoleOrgAdmin)
		assert.ErrorIs(t, err, ErrInvalidTenantHeader)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(membershipQuery).
			WithArgs(tenantID, userID).
			WillReturnError(errors.New("connection refused"))

		resolver := NewResolver(NewPostgresMembershipStore(db))

		_, err = resolver.ResolveValidated(context.Background(), tenantID.String(), userID, RoleOrgAdmin)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotMember)
	})
}

func TestMembershipStoreInvalidRoleRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenantID := uuid.New()
	userID := uuid.New()

	mock.ExpectQuery(membershipQuery).
		WithArgs(tenantID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("corrupted"))

	store := NewPostgresMembershipStore(db)
	_, err = store.Lookup(context.Background(), tenantID, userID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid role")
}
