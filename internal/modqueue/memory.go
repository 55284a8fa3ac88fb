package modqueue

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory for tests and local use.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]*Item
	seq  []string

	// Err, when set, is returned by every operation.
	Err error
}

// NewMemoryStore creates an empty in-memory queue store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]*Item)}
}

func (m *MemoryStore) Create(ctx context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := *item
	m.rows[item.ID] = &cp
	m.seq = append(m.seq, item.ID)
	return nil
}

func (m *MemoryStore) Find(ctx context.Context, id string) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	it, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *MemoryStore) List(ctx context.Context, f Filter) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []Item
	for _, id := range m.seq {
		it := m.rows[id]
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		if f.ItemType != "" && it.ItemType != f.ItemType {
			continue
		}
		if f.Moderator != "" && it.AssignedModerator != f.Moderator {
			continue
		}
		out = append(out, *it)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Assign(ctx context.Context, id, moderatorID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	it, ok := m.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if it.Status != StatusOpen && it.Status != StatusAssigned {
		return false, nil
	}
	it.Status = StatusAssigned
	it.AssignedModerator = moderatorID
	it.UpdatedAt = at
	return true, nil
}

func (m *MemoryStore) Start(ctx context.Context, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	it, ok := m.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if it.Status != StatusAssigned {
		return false, nil
	}
	it.Status = StatusInProgress
	it.UpdatedAt = at
	return true, nil
}

func (m *MemoryStore) Finish(ctx context.Context, id string, to Status, resolution, actionTaken string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	it, ok := m.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if it.Status != StatusAssigned && it.Status != StatusInProgress {
		return false, nil
	}
	it.Status = to
	it.Resolution = resolution
	it.ActionTaken = actionTaken
	it.UpdatedAt = at
	it.CompletedAt = &at
	return true, nil
}

func (m *MemoryStore) SetPriority(ctx context.Context, id string, priority int, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	it, ok := m.rows[id]
	if !ok {
		return false, ErrNotFound
	}
	if it.Status != StatusOpen && it.Status != StatusAssigned {
		return false, nil
	}
	it.Priority = priority
	it.UpdatedAt = at
	return true, nil
}

func (m *MemoryStore) ListUnassignedOpen(ctx context.Context, itemType ItemType) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []Item
	for _, id := range m.seq {
		it := m.rows[id]
		if it.Status != StatusOpen || it.AssignedModerator != "" {
			continue
		}
		if itemType != "" && it.ItemType != itemType {
			continue
		}
		out = append(out, *it)
	}
	sortQueueOrder(out)
	return out, nil
}

func (m *MemoryStore) ListOverdue(ctx context.Context, cutoff time.Time) ([]Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []Item
	for _, id := range m.seq {
		it := m.rows[id]
		if it.Status != StatusOpen && it.Status != StatusAssigned {
			continue
		}
		if !it.CreatedAt.Before(cutoff) {
			continue
		}
		if it.Priority >= MaxPriority {
			continue
		}
		out = append(out, *it)
	}
	sortQueueOrder(out)
	return out, nil
}

func (m *MemoryStore) CountByModerator(ctx context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	counts := make(map[string]int)
	for _, it := range m.rows {
		if it.AssignedModerator == "" {
			continue
		}
		if it.Status != StatusAssigned && it.Status != StatusInProgress {
			continue
		}
		counts[it.AssignedModerator]++
	}
	return counts, nil
}

func (m *MemoryStore) CountOpenWork(ctx context.Context, moderatorID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	n := 0
	for _, it := range m.rows {
		if it.Status != StatusAssigned && it.Status != StatusInProgress {
			continue
		}
		if moderatorID != "" && it.AssignedModerator != moderatorID {
			continue
		}
		n++
	}
	return n, nil
}

func sortQueueOrder(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

var _ Store = (*MemoryStore)(nil)
