package modqueue

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"warden.gg/internal/ids"
)

// ModeratorDirectory resolves the set of users eligible to receive queue
// work. Backed by the authorization guard in production.
type ModeratorDirectory interface {
	EligibleModerators(ctx context.Context) ([]string, error)
}

// EventSink receives queue lifecycle events for dashboards. Publishing
// must never block a mutating operation.
type EventSink interface {
	Publish(event Event)
}

// Event describes a queue lifecycle change.
type Event struct {
	Kind      string    `json:"kind"`
	ItemID    string    `json:"item_id"`
	ItemType  ItemType  `json:"item_type"`
	Status    Status    `json:"status"`
	Priority  int       `json:"priority"`
	Moderator string    `json:"moderator,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Service schedules moderation-queue triage: assignment, completion,
// escalation and load balancing. Invoked synchronously by callers; there
// is no internal timer.
type Service struct {
	store     Store
	directory ModeratorDirectory
	events    EventSink
	now       func() time.Time
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithEvents attaches a dashboard event sink.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// NewService constructs the scheduler.
func NewService(store Store, directory ModeratorDirectory, opts ...Option) *Service {
	s := &Service{store: store, directory: directory, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(kind string, item Item) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{
		Kind:      kind,
		ItemID:    item.ID,
		ItemType:  item.ItemType,
		Status:    item.Status,
		Priority:  item.Priority,
		Moderator: item.AssignedModerator,
		Timestamp: s.now().UTC(),
	})
}

// SubmitParams carries the optional fields of a new queue item.
type SubmitParams struct {
	Priority       int
	ReportedUserID string
	ContentRef     string
	Reason         string
}

// Submit enqueues a new triage item in the open state.
func (s *Service) Submit(ctx context.Context, itemType ItemType, p SubmitParams) (Item, error) {
	if _, ok := itemTypes[itemType]; !ok {
		return Item{}, fmt.Errorf("%w: %q", ErrUnknownType, itemType)
	}
	if p.Priority == 0 {
		p.Priority = 5
	}
	if p.Priority < MinPriority || p.Priority > MaxPriority {
		return Item{}, fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidInput, MinPriority, MaxPriority)
	}
	now := s.now().UTC()
	item := Item{
		ID:             ids.New(),
		ItemType:       itemType,
		Status:         StatusOpen,
		Priority:       p.Priority,
		ReportedUserID: strings.TrimSpace(p.ReportedUserID),
		ContentRef:     strings.TrimSpace(p.ContentRef),
		Reason:         strings.TrimSpace(p.Reason),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, &item); err != nil {
		return Item{}, err
	}
	s.publish("submitted", item)
	return item, nil
}

// Assign hands an item to a moderator. Re-assignment while assigned
// simply overwrites the current assignee.
func (s *Service) Assign(ctx context.Context, itemID, moderatorID string) (Item, error) {
	moderatorID = strings.TrimSpace(moderatorID)
	if moderatorID == "" {
		return Item{}, fmt.Errorf("%w: moderator_id is required", ErrInvalidInput)
	}
	mutated, err := s.store.Assign(ctx, itemID, moderatorID, s.now().UTC())
	if err != nil {
		return Item{}, err
	}
	item, ferr := s.store.Find(ctx, itemID)
	if ferr != nil {
		return Item{}, ferr
	}
	if !mutated {
		return Item{}, NewStateError(item.Status, StatusAssigned)
	}
	s.publish("assigned", *item)
	return *item, nil
}

// BulkAssign applies Assign per id and returns only the ids actually
// mutated; already-finished items are silently excluded. On an
// infrastructure error the ids mutated so far are returned with it.
func (s *Service) BulkAssign(ctx context.Context, itemIDs []string, moderatorID string) ([]string, error) {
	moderatorID = strings.TrimSpace(moderatorID)
	if moderatorID == "" {
		return nil, fmt.Errorf("%w: moderator_id is required", ErrInvalidInput)
	}
	var mutated []string
	for _, id := range itemIDs {
		_, err := s.Assign(ctx, id, moderatorID)
		if err != nil {
			if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrNotFound) {
				continue
			}
			return mutated, err
		}
		mutated = append(mutated, id)
	}
	return mutated, nil
}

// modLoad is a min-heap entry for the greedy balancer; ties break on the
// moderator id for determinism.
type modLoad struct {
	id   string
	load int
}

type loadHeap []modLoad

func (h loadHeap) Len() int { return len(h) }
func (h loadHeap) Less(i, j int) bool {
	if h[i].load != h[j].load {
		return h[i].load < h[j].load
	}
	return h[i].id < h[j].id
}
func (h loadHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *loadHeap) Push(x any)   { *h = append(*h, x.(modLoad)) }
func (h *loadHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// AutoAssign distributes unassigned open items (optionally filtered by
// type) across eligible moderators, always picking the least-loaded one.
// Items are left untouched when no eligible moderator exists.
func (s *Service) AutoAssign(ctx context.Context, itemType ItemType) ([]Item, error) {
	if itemType != "" {
		if _, ok := itemTypes[itemType]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, itemType)
		}
	}
	moderators, err := s.directory.EligibleModerators(ctx)
	if err != nil {
		return nil, err
	}
	if len(moderators) == 0 {
		return nil, nil
	}
	counts, err := s.store.CountByModerator(ctx)
	if err != nil {
		return nil, err
	}

	h := make(loadHeap, 0, len(moderators))
	for _, id := range moderators {
		h = append(h, modLoad{id: id, load: counts[id]})
	}
	heap.Init(&h)

	pending, err := s.store.ListUnassignedOpen(ctx, itemType)
	if err != nil {
		return nil, err
	}

	var assigned []Item
	for _, item := range pending {
		next := heap.Pop(&h).(modLoad)
		updated, err := s.Assign(ctx, item.ID, next.id)
		if err != nil {
			if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrNotFound) {
				// Raced with a manual assign/skip; the moderator keeps
				// their old load.
				heap.Push(&h, next)
				continue
			}
			return assigned, err
		}
		next.load++
		heap.Push(&h, next)
		assigned = append(assigned, updated)
	}
	return assigned, nil
}

// Start moves an assigned item into in_progress.
func (s *Service) Start(ctx context.Context, itemID string) (Item, error) {
	mutated, err := s.store.Start(ctx, itemID, s.now().UTC())
	if err != nil {
		return Item{}, err
	}
	item, ferr := s.store.Find(ctx, itemID)
	if ferr != nil {
		return Item{}, ferr
	}
	if !mutated {
		return Item{}, NewStateError(item.Status, StatusInProgress)
	}
	s.publish("started", *item)
	return *item, nil
}

// Complete finishes an assigned or in_progress item with a resolution.
func (s *Service) Complete(ctx context.Context, itemID, resolution, actionTaken string) (Item, error) {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return Item{}, fmt.Errorf("%w: resolution is required", ErrInvalidInput)
	}
	return s.finish(ctx, itemID, StatusCompleted, resolution, strings.TrimSpace(actionTaken))
}

// Skip closes an assigned or in_progress item without resolving it.
func (s *Service) Skip(ctx context.Context, itemID, reason string) (Item, error) {
	return s.finish(ctx, itemID, StatusSkipped, strings.TrimSpace(reason), "")
}

func (s *Service) finish(ctx context.Context, itemID string, to Status, resolution, actionTaken string) (Item, error) {
	mutated, err := s.store.Finish(ctx, itemID, to, resolution, actionTaken, s.now().UTC())
	if err != nil {
		return Item{}, err
	}
	item, ferr := s.store.Find(ctx, itemID)
	if ferr != nil {
		return Item{}, ferr
	}
	if !mutated {
		return Item{}, NewStateError(item.Status, to)
	}
	s.publish(string(to), *item)
	return *item, nil
}

// UpdatePriority re-ranks an open or assigned item.
func (s *Service) UpdatePriority(ctx context.Context, itemID string, priority int) (Item, error) {
	if priority < MinPriority || priority > MaxPriority {
		return Item{}, fmt.Errorf("%w: priority must be between %d and %d", ErrInvalidInput, MinPriority, MaxPriority)
	}
	mutated, err := s.store.SetPriority(ctx, itemID, priority, s.now().UTC())
	if err != nil {
		return Item{}, err
	}
	item, ferr := s.store.Find(ctx, itemID)
	if ferr != nil {
		return Item{}, ferr
	}
	if !mutated {
		return Item{}, NewStateError(item.Status, item.Status)
	}
	s.publish("reprioritized", *item)
	return *item, nil
}

// EscalateOverdue raises the priority of every open/assigned item older
// than thresholdHours by one step, capped at MaxPriority. Already-capped
// items are excluded, so repeated runs are idempotent. Returns exactly
// the items it touched.
func (s *Service) EscalateOverdue(ctx context.Context, thresholdHours int) ([]Item, error) {
	if thresholdHours <= 0 {
		return nil, fmt.Errorf("%w: threshold must be > 0 hours", ErrInvalidInput)
	}
	now := s.now().UTC()
	cutoff := now.Add(-time.Duration(thresholdHours) * time.Hour)
	overdue, err := s.store.ListOverdue(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	var touched []Item
	for _, item := range overdue {
		next := item.Priority + 1
		if next > MaxPriority {
			next = MaxPriority
		}
		mutated, err := s.store.SetPriority(ctx, item.ID, next, now)
		if err != nil {
			return touched, err
		}
		if !mutated {
			continue
		}
		item.Priority = next
		item.UpdatedAt = now
		s.publish("escalated", item)
		touched = append(touched, item)
	}
	return touched, nil
}

// Workload reports per-moderator assigned/in_progress counts, or a single
// moderator's count when moderatorID is set. Backs the balancer and the
// dashboards.
type Workload struct {
	Total       int            `json:"total"`
	ByModerator map[string]int `json:"by_moderator,omitempty"`
}

// GetWorkload aggregates open work, globally or per moderator.
func (s *Service) GetWorkload(ctx context.Context, moderatorID string) (Workload, error) {
	moderatorID = strings.TrimSpace(moderatorID)
	if moderatorID != "" {
		n, err := s.store.CountOpenWork(ctx, moderatorID)
		if err != nil {
			return Workload{}, err
		}
		return Workload{Total: n, ByModerator: map[string]int{moderatorID: n}}, nil
	}
	counts, err := s.store.CountByModerator(ctx)
	if err != nil {
		return Workload{}, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return Workload{Total: total, ByModerator: counts}, nil
}

// Get returns one item by id.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	item, err := s.store.Find(ctx, strings.TrimSpace(id))
	if err != nil {
		return Item{}, err
	}
	return *item, nil
}

// List queries items by status, type and assignee.
func (s *Service) List(ctx context.Context, f Filter) ([]Item, error) {
	if f.ItemType != "" {
		if _, ok := itemTypes[f.ItemType]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.ItemType)
		}
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	items, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}
