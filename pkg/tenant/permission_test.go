package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinLevelPermission(t *testing.T) {
	tests := []struct {
		name      string
		perm      Permission
		role      Role
		satisfied bool
	}{
		{"manager meets manager gate", PermManager, RoleManager, true},
		{"org admin exceeds manager gate", PermManager, RoleOrgAdmin, true},
		{"owner below manager gate", PermManager, RoleOwner, false},
		{"guest below resident gate", PermResident, RoleGuest, false},
		{"resident meets resident gate", PermResident, RoleResident, true},
		{"tenant meets resident gate", PermResident, RoleTenant, true},
		{"super admin meets every gate", PermSuperAdmin, RoleSuperAdmin, true},
		{"platform admin below super admin gate", PermSuperAdmin, RolePlatformAdmin, false},
		{"guest satisfies authenticated gate", PermAuthenticated, RoleGuest, true},
		{"unknown role fails authenticated gate", PermAuthenticated, Role("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.satisfied, tt.perm.SatisfiedBy(tt.role))
		})
	}
}

func TestAllowRolesOverridesLevel(t *testing.T) {
	perm := AllowRoles("owners only", RoleOwner, RoleOwnerDelegate)

	assert.True(t, perm.SatisfiedBy(RoleOwner))
	assert.True(t, perm.SatisfiedBy(RoleOwnerDelegate))

	// A higher level does not help when the allow-set decides
	assert.False(t, perm.SatisfiedBy(RoleSuperAdmin))
	assert.False(t, perm.SatisfiedBy(RoleOrgAdmin))
	assert.False(t, perm.SatisfiedBy(RoleGuest))
}

func TestEmptyAllowSetDeniesEveryone(t *testing.T) {
	perm := AllowRoles("nobody")
	for _, role := range AllRoles() {
		assert.False(t, perm.SatisfiedBy(role), "role %s", role)
	}
}
