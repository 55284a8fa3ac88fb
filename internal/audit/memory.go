package audit

import (
	"context"
	"sync"
)

// MemoryStore implements Store in process memory for tests and local use.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry

	// Err, when set, is returned by every operation.
	Err error
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if f.AdminUserID != "" && e.AdminUserID != f.AdminUserID {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		if f.TargetType != "" && e.TargetType != f.TargetType {
			continue
		}
		if f.TargetID != "" && e.TargetID != f.TargetID {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
