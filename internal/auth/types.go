package auth

import "time"

// RoleAssignment grants a catalog role to a user. An assignment may carry
// a custom permission override list that extends the role's set. Expiry is
// evaluated lazily at authorization time; expired rows are never swept.
type RoleAssignment struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions,omitempty"`
	AssignedBy  string     `json:"assigned_by"`
	Notes       string     `json:"notes,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Expired reports whether the assignment's expiry has passed at now.
func (a RoleAssignment) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Grant is the explicit authorization context produced by a successful
// gate check and threaded to downstream handlers by the caller.
type Grant struct {
	UserID  string   `json:"user_id"`
	Matched []string `json:"matched,omitempty"`
}
