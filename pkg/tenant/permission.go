package tenant

// Permission declares the access requirement for a route: either a minimum
// role level, or an explicit allow-set of roles. Permissions are process-wide
// constants, never mutated after startup.
type Permission struct {
	// MinLevel is the minimum role level required
	MinLevel int
	// AllowedRoles, when non-nil, is the entire test: membership in the set
	// decides, and MinLevel is ignored even if the role's level would qualify
	AllowedRoles map[Role]struct{}
	// Description for logging and documentation, never sent to clients
	Description string
}

// MinLevel creates a permission requiring a minimum role level
func MinLevel(level int, description string) Permission {
	return Permission{
		MinLevel:    level,
		Description: description,
	}
}

// AllowRoles creates a permission satisfied only by the listed roles
func AllowRoles(description string, roles ...Role) Permission {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return Permission{
		AllowedRoles: allowed,
		Description:  description,
	}
}

// SatisfiedBy reports whether the role meets this permission
func (p Permission) SatisfiedBy(role Role) bool {
	if p.AllowedRoles != nil {
		_, ok := p.AllowedRoles[role]
		return ok
	}
	return role.Level() >= p.MinLevel
}

// Common permission levels based on the role hierarchy
var (
	// PermSuperAdmin requires super admin (level 100)
	PermSuperAdmin = MinLevel(100, "super admin access")

	// PermPlatformAdmin requires platform admin and above (level 95+)
	PermPlatformAdmin = MinLevel(95, "platform admin access")

	// PermOrgAdmin requires organization admin and above (level 90+)
	PermOrgAdmin = MinLevel(90, "organization admin access")

	// PermManager requires manager and above (level 80+)
	PermManager = MinLevel(80, "manager access")

	// PermTechnicalManager requires technical manager and above (level 75+)
	PermTechnicalManager = MinLevel(75, "technical manager access")

	// PermOwner requires owner and above (level 60+)
	PermOwner = MinLevel(60, "owner access")

	// PermResident requires tenant/resident and above (level 30+)
	PermResident = MinLevel(30, "resident access")

	// PermAuthenticated allows any authenticated user (level 1+)
	PermAuthenticated = MinLevel(1, "any authenticated user")
)
