package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleLevelsAreUnique(t *testing.T) {
	seen := make(map[int]Role)
	for _, role := range AllRoles() {
		level := role.Level()
		if other, ok := seen[level]; ok {
			t.Fatalf("roles %s and %s share level %d", role, other, level)
		}
		seen[level] = role
	}
}

func TestRoleOrderingIsTotal(t *testing.T) {
	roles := AllRoles()
	// AllRoles is documented highest-first, so each role must strictly
	// outrank the next one.
	for i := 0; i < len(roles)-1; i++ {
		assert.Greater(t, roles[i].Level(), roles[i+1].Level(),
			"%s should outrank %s", roles[i], roles[i+1])
	}
}

func TestUnknownRoleBelowGuest(t *testing.T) {
	unknown := Role("intruder")
	assert.False(t, unknown.Valid())
	assert.Less(t, unknown.Level(), RoleGuest.Level())
}

func TestBypassesRLS(t *testing.T) {
	for _, role := range AllRoles() {
		expected := role == RoleSuperAdmin || role == RolePlatformAdmin
		assert.Equal(t, expected, role.BypassesRLS(), "role %s", role)
	}
}

func TestIsAdminAndIsManager(t *testing.T) {
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.True(t, RoleOrgAdmin.IsAdmin())
	assert.False(t, RoleManager.IsAdmin())

	assert.True(t, RoleManager.IsManager())
	assert.True(t, RoleTechnicalManager.IsManager())
	assert.True(t, RoleOrgAdmin.IsManager())
	assert.False(t, RoleOwner.IsManager())
	assert.False(t, RoleGuest.IsManager())
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("manager")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, role)

	_, err = ParseRole("not_a_role")
	assert.Error(t, err)

	// Roles are case sensitive
	_, err = ParseRole("Manager")
	assert.Error(t, err)
}
