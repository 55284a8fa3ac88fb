package auth

import "strings"

// Permission identifiers follow the namespace:action convention. They are
// defined only here; the catalog is the single source of truth.
const (
	PermUsersMute      = "users:mute"
	PermUsersWarn      = "users:warn"
	PermUsersRestrict  = "users:restrict"
	PermUsersBan       = "users:ban"
	PermUsersShadowban = "users:shadowban"
	PermUsersSuspend   = "users:suspend"
	PermUsersNote      = "users:note"
	PermQueueView      = "queue:view"
	PermQueueAssign    = "queue:assign"
	PermQueueResolve   = "queue:resolve"
	PermQueueEscalate  = "queue:escalate"
	PermRolesAssign    = "roles:assign"
	PermRolesRevoke    = "roles:revoke"
	PermAuditView      = "audit:view"
	PermCMSPublish     = "cms:publish"
	PermCMSEdit        = "cms:edit"
)

// Role names form a fixed catalog. RoleSuperAdmin short-circuits every
// permission check; it carries no explicit permission list.
const (
	RoleSuperAdmin       = "super_admin"
	RoleAdmin            = "admin"
	RoleModerator        = "moderator"
	RoleTrustSafety      = "trust_safety"
	RoleCommunityManager = "community_manager"
)

// Catalog maps role names to their permission sets. It is an immutable
// value injected into the Guard so tests can substitute alternate catalogs.
type Catalog struct {
	roles map[string][]string
}

// NewCatalog builds a catalog from role -> permission lists. The input is
// copied; later mutation of the argument does not affect the catalog.
func NewCatalog(roles map[string][]string) Catalog {
	copied := make(map[string][]string, len(roles))
	for name, perms := range roles {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}
		list := make([]string, len(perms))
		copy(list, perms)
		copied[name] = list
	}
	return Catalog{roles: copied}
}

// DefaultCatalog returns the production role catalog.
func DefaultCatalog() Catalog {
	return NewCatalog(map[string][]string{
		RoleSuperAdmin: nil,
		RoleAdmin: {
			PermUsersMute, PermUsersWarn, PermUsersRestrict, PermUsersBan,
			PermUsersShadowban, PermUsersSuspend, PermUsersNote,
			PermQueueView, PermQueueAssign, PermQueueResolve, PermQueueEscalate,
			PermRolesAssign, PermRolesRevoke, PermAuditView,
		},
		RoleModerator: {
			PermUsersMute, PermUsersWarn, PermUsersNote,
			PermQueueView, PermQueueAssign, PermQueueResolve,
		},
		RoleTrustSafety: {
			PermUsersMute, PermUsersWarn, PermUsersRestrict, PermUsersBan,
			PermUsersShadowban, PermUsersSuspend, PermUsersNote,
			PermQueueView, PermQueueAssign, PermQueueResolve, PermQueueEscalate,
			PermAuditView,
		},
		RoleCommunityManager: {
			PermUsersWarn, PermUsersNote, PermQueueView,
			PermCMSPublish, PermCMSEdit,
		},
	})
}

// PermissionsFor returns the permission set of a role; the empty set for
// an unknown role. The returned slice is a copy.
func (c Catalog) PermissionsFor(role string) []string {
	perms, ok := c.roles[normalizeRole(role)]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Contains reports whether the role exists in the catalog.
func (c Catalog) Contains(role string) bool {
	_, ok := c.roles[normalizeRole(role)]
	return ok
}

// Roles returns the catalog's role names.
func (c Catalog) Roles() []string {
	out := make([]string, 0, len(c.roles))
	for name := range c.roles {
		out = append(out, name)
	}
	return out
}

// RolesGranting returns the catalog roles whose permission set includes
// perm. Used to resolve moderator eligibility for queue balancing.
func (c Catalog) RolesGranting(perm string) []string {
	var out []string
	for name, perms := range c.roles {
		if name == RoleSuperAdmin {
			out = append(out, name)
			continue
		}
		for _, p := range perms {
			if p == perm {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func normalizeRole(role string) string {
	return strings.TrimSpace(strings.ToLower(role))
}
