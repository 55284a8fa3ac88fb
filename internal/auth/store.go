package auth

import "context"

// AssignmentStore describes persistence operations for role assignments.
// Implementations provide per-row atomicity only; no snapshot isolation is
// offered between request arrival and a permission check.
type AssignmentStore interface {
	Create(ctx context.Context, assignment *RoleAssignment) error
	// Deactivate revokes the user's active assignment of role. Returns
	// ErrNotFound when no active assignment matches.
	Deactivate(ctx context.Context, userID, role string) error
	// ActiveForUser lists the user's assignments with is_active=true.
	// Expiry filtering is the caller's concern (lazy check-on-read).
	ActiveForUser(ctx context.Context, userID string) ([]RoleAssignment, error)
	// HoldersOf lists distinct user ids holding an active assignment of
	// any of the given roles.
	HoldersOf(ctx context.Context, roles []string) ([]string, error)
}
