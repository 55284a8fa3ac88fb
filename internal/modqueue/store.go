package modqueue

import (
	"context"
	"time"
)

// Store describes persistence for queue items. Mutating operations are
// conditional transitions: the WHERE clause re-checks the allowed source
// states so racing moderators cannot resurrect a finished item. The
// boolean result reports whether a row was actually mutated.
type Store interface {
	Create(ctx context.Context, item *Item) error
	Find(ctx context.Context, id string) (*Item, error)
	List(ctx context.Context, f Filter) ([]Item, error)

	// Assign sets the assignee and status=assigned while the item is
	// open or assigned (re-assignment overwrites the assignee).
	Assign(ctx context.Context, id, moderatorID string, at time.Time) (bool, error)
	// Start moves assigned -> in_progress.
	Start(ctx context.Context, id string, at time.Time) (bool, error)
	// Finish moves assigned|in_progress -> completed|skipped and stamps
	// the resolution.
	Finish(ctx context.Context, id string, to Status, resolution, actionTaken string, at time.Time) (bool, error)
	// SetPriority re-ranks the item while open or assigned.
	SetPriority(ctx context.Context, id string, priority int, at time.Time) (bool, error)

	// ListUnassignedOpen returns open items without an assignee in queue
	// order (priority desc, then created_at asc), optionally filtered by
	// type.
	ListUnassignedOpen(ctx context.Context, itemType ItemType) ([]Item, error)
	// ListOverdue returns open/assigned items created before cutoff whose
	// priority is below MaxPriority, in queue order.
	ListOverdue(ctx context.Context, cutoff time.Time) ([]Item, error)
	// CountByModerator returns assigned/in_progress counts per moderator.
	CountByModerator(ctx context.Context) (map[string]int, error)
	// CountOpenWork returns the total number of assigned/in_progress
	// items, or the moderator's own count when moderatorID is set.
	CountOpenWork(ctx context.Context, moderatorID string) (int, error)
}
