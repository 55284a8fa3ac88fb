package modaction

import (
	"context"
	"time"
)

// Store describes persistence for moderation actions. Per-row atomicity
// only; MarkReversed is a conditional update so an action can be reversed
// at most once even under concurrent reversers.
type Store interface {
	Create(ctx context.Context, action *Action) error
	Find(ctx context.Context, id string) (*Action, error)
	List(ctx context.Context, f Filter) ([]Action, error)
	// ActiveByTarget lists the target's actions with is_active=true,
	// newest first. Expiry filtering is the caller's concern.
	ActiveByTarget(ctx context.Context, targetUserID string) ([]Action, error)
	// MarkReversed flips is_active to false and stamps the reversal,
	// guarded by is_active and is_reversible. Returns false when the
	// guard did not match (already reversed or not reversible).
	MarkReversed(ctx context.Context, id, reversedBy, note string, at time.Time) (bool, error)
}
