package tenant

import "fmt"

// Role represents a user's role within a tenant
type Role string

const (
	RoleSuperAdmin       Role = "super_admin"        // Platform-level administrator, bypasses RLS
	RolePlatformAdmin    Role = "platform_admin"     // Infrastructure/operations administrator, bypasses RLS
	RoleOrgAdmin         Role = "org_admin"          // Organization administrator
	RoleManager          Role = "manager"            // Building manager
	RoleTechnicalManager Role = "technical_manager"  // Technical manager
	RoleOwner            Role = "owner"              // Property owner
	RoleOwnerDelegate    Role = "owner_delegate"     // Owner's delegate
	RolePropertyManager  Role = "property_manager"   // Short-term rental property manager
	RoleRealEstateAgent  Role = "real_estate_agent"  // Real estate agent
	RoleTenant           Role = "tenant"             // Tenant/renter
	RoleResident         Role = "resident"           // Resident without ownership
	RoleGuest            Role = "guest"              // Temporary access, least privileged
)

// roleLevels maps each role to its hierarchy level. Higher means more
// permissions. Every role has a unique level so the ordering is total.
var roleLevels = map[Role]int{
	RoleSuperAdmin:       100,
	RolePlatformAdmin:    95,
	RoleOrgAdmin:         90,
	RoleManager:          80,
	RoleTechnicalManager: 75,
	RoleOwner:            60,
	RoleOwnerDelegate:    55,
	RolePropertyManager:  50,
	RoleRealEstateAgent:  45,
	RoleTenant:           40,
	RoleResident:         30,
	RoleGuest:            10,
}

// AllRoles returns every role in the hierarchy, highest level first
func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin,
		RolePlatformAdmin,
		RoleOrgAdmin,
		RoleManager,
		RoleTechnicalManager,
		RoleOwner,
		RoleOwnerDelegate,
		RolePropertyManager,
		RoleRealEstateAgent,
		RoleTenant,
		RoleResident,
		RoleGuest,
	}
}

// Level returns the role's hierarchy level. Unknown roles get level 0,
// below Guest, so anything unrecognized is treated as least privileged.
func (r Role) Level() int {
	return roleLevels[r]
}

// Valid reports whether the role is one of the defined variants
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// IsAdmin reports whether the role is admin-level
func (r Role) IsAdmin() bool {
	switch r {
	case RoleSuperAdmin, RolePlatformAdmin, RoleOrgAdmin:
		return true
	}
	return false
}

// IsManager reports whether the role is manager-level or above
func (r Role) IsManager() bool {
	return r.IsAdmin() || r == RoleManager || r == RoleTechnicalManager
}

// BypassesRLS reports whether the role's queries are intended to see across
// tenants. Only the top platform-level roles qualify; the bypass is signaled
// to the database via the session context, never by disabling policies.
func (r Role) BypassesRLS() bool {
	return r == RoleSuperAdmin || r == RolePlatformAdmin
}

// ParseRole parses a role string into a Role
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
