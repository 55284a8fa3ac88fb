package modaction

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory for tests and local use.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*Action
	seq  []string

	// Err, when set, is returned by every operation.
	Err error
}

// NewMemoryStore creates an empty in-memory action store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*Action)}
}

func (m *MemoryStore) Create(ctx context.Context, action *Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *action
	m.rows[action.ID] = &cp
	m.seq = append(m.seq, action.ID)
	return nil
}

func (m *MemoryStore) Find(ctx context.Context, id string) (*Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []Action
	for _, id := range m.seq {
		a := m.rows[id]
		if f.TargetUserID != "" && a.TargetUserID != f.TargetUserID {
			continue
		}
		if f.ModeratorID != "" && a.ModeratorID != f.ModeratorID {
			continue
		}
		if f.Kind != "" && a.Kind != f.Kind {
			continue
		}
		if f.Active != nil && a.IsActive != *f.Active {
			continue
		}
		out = append(out, *a)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) ActiveByTarget(ctx context.Context, targetUserID string) ([]Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []Action
	for _, a := range m.rows {
		if a.TargetUserID == targetUserID && a.IsActive {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) MarkReversed(ctx context.Context, id, reversedBy, note string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	a, ok := m.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if !a.IsActive || !a.IsReversible {
		return false, nil
	}
	a.IsActive = false
	a.ReversedAt = &at
	a.ReversedBy = reversedBy
	a.ReverseNote = note
	return true, nil
}

var _ Store = (*MemoryStore)(nil)
