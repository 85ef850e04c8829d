package domain

// Capability is an atomic named permission checked by handlers after the
// auth gate has established identity.
type Capability string

const (
	ProjectCreate Capability = "project:create"
	ProjectRead   Capability = "project:read"
	ProjectUpdate Capability = "project:update"
	ProjectDelete Capability = "project:delete"

	TaskCreate Capability = "task:create"
	TaskRead   Capability = "task:read"
	TaskUpdate Capability = "task:update"
	TaskDelete Capability = "task:delete"
	TaskAssign Capability = "task:assign"

	UserInvite     Capability = "user:invite"
	UserRemove     Capability = "user:remove"
	UserUpdateRole Capability = "user:update_role"

	AnalyticsRead   Capability = "analytics:read"
	AnalyticsExport Capability = "analytics:export"

	// AdminAll satisfies any capability check.
	AdminAll Capability = "admin:all"
)

var rolePermissions = map[UserRole][]Capability{
	Admin: {
		ProjectCreate, ProjectRead, ProjectUpdate, ProjectDelete,
		TaskCreate, TaskRead, TaskUpdate, TaskDelete, TaskAssign,
		UserInvite, UserRemove, UserUpdateRole,
		AnalyticsRead, AnalyticsExport,
		AdminAll,
	},
	Manager: {
		ProjectCreate, ProjectRead, ProjectUpdate,
		TaskCreate, TaskRead, TaskUpdate, TaskDelete, TaskAssign,
		UserInvite,
		AnalyticsRead, AnalyticsExport,
	},
	Member: {
		ProjectRead,
		TaskCreate, TaskRead, TaskUpdate,
		AnalyticsRead,
	},
}

// capabilitySets is precomputed at init so Can is a pure map lookup.
var capabilitySets = func() map[UserRole]map[Capability]struct{} {
	sets := make(map[UserRole]map[Capability]struct{}, len(rolePermissions))

	for role, caps := range rolePermissions {
		set := make(map[Capability]struct{}, len(caps))
		for _, c := range caps {
			set[c] = struct{}{}
		}
		sets[role] = set
	}

	return sets
}()

// Can reports whether the role grants the capability. An unknown role grants
// nothing.
func Can(role UserRole, capability Capability) bool {
	set, ok := capabilitySets[role]

	if !ok {
		return false
	}

	if _, ok := set[AdminAll]; ok {
		return true
	}

	_, ok = set[capability]
	return ok
}

// PermissionsFor returns the ordered capability list for a role, as embedded
// into access-token claims.
func PermissionsFor(role UserRole) []Capability {
	caps, ok := rolePermissions[role]

	if !ok {
		return nil
	}

	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}
