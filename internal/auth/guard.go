package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warden.gg/internal/ids"
)

// Guard decides allow/deny for privileged operations. Every data-access
// error during a decision resolves to deny: authorization never fails open.
type Guard struct {
	catalog Catalog
	store   AssignmentStore
	now     func() time.Time
}

// GuardOption configures Guard behavior.
type GuardOption func(*Guard)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) GuardOption {
	return func(g *Guard) {
		if fn != nil {
			g.now = fn
		}
	}
}

// NewGuard constructs a Guard over an injected catalog and store.
func NewGuard(catalog Catalog, store AssignmentStore, opts ...GuardOption) *Guard {
	g := &Guard{catalog: catalog, store: store, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Catalog exposes the injected permission catalog.
func (g *Guard) Catalog() Catalog { return g.catalog }

func (g *Guard) activeAssignments(ctx context.Context, userID string) ([]RoleAssignment, error) {
	rows, err := g.store.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := g.now().UTC()
	out := rows[:0]
	for _, a := range rows {
		if !a.IsActive || a.Expired(now) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// HasAdminRole reports whether the user holds at least one active
// assignment of a catalog role. Errors resolve to false.
func (g *Guard) HasAdminRole(ctx context.Context, userID string) bool {
	assignments, err := g.activeAssignments(ctx, userID)
	if err != nil {
		return false
	}
	for _, a := range assignments {
		if g.catalog.Contains(a.Role) {
			return true
		}
	}
	return false
}

// HasPermission reports whether any of the user's active assignments
// grants perm, via the role's catalog set, the assignment's override
// list, or the super-admin short circuit. Errors resolve to false.
func (g *Guard) HasPermission(ctx context.Context, userID, perm string) bool {
	ok, err := g.checkPermission(ctx, userID, perm)
	return err == nil && ok
}

func (g *Guard) checkPermission(ctx context.Context, userID, perm string) (bool, error) {
	assignments, err := g.activeAssignments(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, a := range assignments {
		if normalizeRole(a.Role) == RoleSuperAdmin {
			return true, nil
		}
		for _, p := range g.catalog.PermissionsFor(a.Role) {
			if p == perm {
				return true, nil
			}
		}
		for _, p := range a.Permissions {
			if p == perm {
				return true, nil
			}
		}
	}
	return false, nil
}

func (g *Guard) resolveIdentity(ctx context.Context) (string, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return "", ErrNoIdentity
	}
	return userID, nil
}

// RequireAdmin gates on membership of any catalog role.
func (g *Guard) RequireAdmin(ctx context.Context) (Grant, error) {
	userID, err := g.resolveIdentity(ctx)
	if err != nil {
		return Grant{}, err
	}
	assignments, err := g.activeAssignments(ctx, userID)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrCheckFailed, err)
	}
	for _, a := range assignments {
		if g.catalog.Contains(a.Role) {
			return Grant{UserID: userID}, nil
		}
	}
	return Grant{}, fmt.Errorf("%w: admin role required", ErrForbidden)
}

// RequirePermission gates on a single permission.
func (g *Guard) RequirePermission(ctx context.Context, perm string) (Grant, error) {
	return g.RequireAllPermissions(ctx, perm)
}

// RequireAllPermissions gates on every listed permission.
func (g *Guard) RequireAllPermissions(ctx context.Context, perms ...string) (Grant, error) {
	userID, err := g.resolveIdentity(ctx)
	if err != nil {
		return Grant{}, err
	}
	var missing []string
	for _, perm := range perms {
		ok, err := g.checkPermission(ctx, userID, perm)
		if err != nil {
			return Grant{}, fmt.Errorf("%w: %v", ErrCheckFailed, err)
		}
		if !ok {
			missing = append(missing, perm)
		}
	}
	if len(missing) > 0 {
		return Grant{}, fmt.Errorf("%w: missing permission(s) %s", ErrForbidden, strings.Join(missing, ", "))
	}
	return Grant{UserID: userID, Matched: append([]string(nil), perms...)}, nil
}

// RequireAnyPermission gates on at least one of the listed permissions.
func (g *Guard) RequireAnyPermission(ctx context.Context, perms ...string) (Grant, error) {
	userID, err := g.resolveIdentity(ctx)
	if err != nil {
		return Grant{}, err
	}
	for _, perm := range perms {
		ok, err := g.checkPermission(ctx, userID, perm)
		if err != nil {
			return Grant{}, fmt.Errorf("%w: %v", ErrCheckFailed, err)
		}
		if ok {
			return Grant{UserID: userID, Matched: []string{perm}}, nil
		}
	}
	return Grant{}, fmt.Errorf("%w: missing permission(s) %s", ErrForbidden, strings.Join(perms, ", "))
}

// AssignRole records a new active role assignment.
func (g *Guard) AssignRole(ctx context.Context, assignment RoleAssignment) (RoleAssignment, error) {
	assignment.UserID = strings.TrimSpace(assignment.UserID)
	assignment.Role = normalizeRole(assignment.Role)
	if assignment.UserID == "" {
		return RoleAssignment{}, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if !g.catalog.Contains(assignment.Role) {
		return RoleAssignment{}, fmt.Errorf("%w: %s", ErrUnknownRole, assignment.Role)
	}
	if assignment.ExpiresAt != nil && !assignment.ExpiresAt.After(g.now().UTC()) {
		return RoleAssignment{}, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}
	if assignment.ID == "" {
		assignment.ID = ids.New()
	}
	assignment.IsActive = true
	assignment.CreatedAt = g.now().UTC()
	if err := g.store.Create(ctx, &assignment); err != nil {
		return RoleAssignment{}, err
	}
	return assignment, nil
}

// RevokeRole deactivates the user's active assignment of role.
func (g *Guard) RevokeRole(ctx context.Context, userID, role string) error {
	userID = strings.TrimSpace(userID)
	role = normalizeRole(role)
	if userID == "" || role == "" {
		return fmt.Errorf("%w: user_id and role are required", ErrInvalidInput)
	}
	return g.store.Deactivate(ctx, userID, role)
}

// EffectivePermissions resolves the union of a user's granted permissions
// across active, non-expired assignments. Super admin reports the full
// catalog union.
func (g *Guard) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	assignments, err := g.activeAssignments(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCheckFailed, err)
	}
	set := make(map[string]struct{})
	for _, a := range assignments {
		if normalizeRole(a.Role) == RoleSuperAdmin {
			for _, role := range g.catalog.Roles() {
				for _, p := range g.catalog.PermissionsFor(role) {
					set[p] = struct{}{}
				}
			}
			continue
		}
		for _, p := range g.catalog.PermissionsFor(a.Role) {
			set[p] = struct{}{}
		}
		for _, p := range a.Permissions {
			set[p] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out, nil
}

// EligibleModerators lists user ids allowed to resolve queue items.
func (g *Guard) EligibleModerators(ctx context.Context) ([]string, error) {
	return g.store.HoldersOf(ctx, g.catalog.RolesGranting(PermQueueResolve))
}
