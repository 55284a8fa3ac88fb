package auth

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryAssignments implements AssignmentStore in process memory. Used by
// tests and local development; production uses the Postgres store.
type MemoryAssignments struct {
	mu   sync.RWMutex
	rows []RoleAssignment

	// Err, when set, is returned by every operation. Tests use it to
	// simulate storage faults and verify fail-closed behavior.
	Err error
}

// NewMemoryAssignments creates an empty in-memory assignment store.
func NewMemoryAssignments() *MemoryAssignments {
	return &MemoryAssignments{}
}

func (m *MemoryAssignments) Create(ctx context.Context, assignment *RoleAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.rows = append(m.rows, *assignment)
	return nil
}

func (m *MemoryAssignments) Deactivate(ctx context.Context, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	found := false
	for i := range m.rows {
		if m.rows[i].UserID == userID && m.rows[i].Role == role && m.rows[i].IsActive {
			m.rows[i].IsActive = false
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryAssignments) ActiveForUser(ctx context.Context, userID string) ([]RoleAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []RoleAssignment
	for _, a := range m.rows {
		if a.UserID == userID && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryAssignments) HoldersOf(ctx context.Context, roles []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	now := time.Now().UTC()
	seen := make(map[string]struct{})
	var out []string
	for _, a := range m.rows {
		if !a.IsActive || a.Expired(now) {
			continue
		}
		if _, ok := want[a.Role]; !ok {
			continue
		}
		if _, ok := seen[a.UserID]; ok {
			continue
		}
		seen[a.UserID] = struct{}{}
		out = append(out, a.UserID)
	}
	sort.Strings(out)
	return out, nil
}

var _ AssignmentStore = (*MemoryAssignments)(nil)
