package modaction

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateComputesActivityAndExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	svc := NewService(store, WithClock(fixedClock(now)))
	ctx := context.Background()

	mute, err := svc.Create(ctx, "mod-1", "user-b", KindMute, "spamming chat", CreateParams{DurationHours: 24})
	if err != nil {
		t.Fatalf("Create mute: %v", err)
	}
	if !mute.IsActive || !mute.IsReversible {
		t.Fatalf("mute must be active and reversible: %+v", mute)
	}
	if mute.ExpiresAt == nil || !mute.ExpiresAt.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("unexpected expires_at: %v", mute.ExpiresAt)
	}

	warn, err := svc.Create(ctx, "mod-1", "user-b", KindWarn, "rude", CreateParams{})
	if err != nil {
		t.Fatalf("Create warn: %v", err)
	}
	if warn.IsActive || warn.IsReversible {
		t.Fatalf("warn must be informational: %+v", warn)
	}
	if warn.ExpiresAt != nil {
		t.Fatalf("no duration means no expiry, got %v", warn.ExpiresAt)
	}

	for _, kind := range []Kind{KindUnban, KindNote} {
		a, err := svc.Create(ctx, "mod-1", "user-b", kind, "housekeeping", CreateParams{})
		if err != nil {
			t.Fatalf("Create %s: %v", kind, err)
		}
		if a.IsActive {
			t.Fatalf("%s must not be a standing restriction", kind)
		}
	}
}

func TestCreateRejectsUnknownKind(t *testing.T) {
	svc := NewService(NewMemoryStore())
	if _, err := svc.Create(context.Background(), "mod-1", "user-b", Kind("yeet"), "x", CreateParams{}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if _, err := ParseKind("yeet"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction from ParseKind, got %v", err)
	}
	if k, err := ParseKind(" Account_Suspend "); err != nil || k != KindSuspend {
		t.Fatalf("ParseKind normalization failed: %v %v", k, err)
	}
}

func TestReverseOnlyOnce(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	ban, err := svc.Create(ctx, "mod-1", "user-b", KindBan, "cheating", CreateParams{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	reversed, err := svc.Reverse(ctx, ban.ID, "lead-1", "appeal accepted")
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if reversed.IsActive || reversed.ReversedAt == nil || reversed.ReversedBy != "lead-1" {
		t.Fatalf("reversal not recorded: %+v", reversed)
	}

	firstAt := *reversed.ReversedAt
	if _, err := svc.Reverse(ctx, ban.ID, "lead-2", "again"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second reversal must fail InvalidState, got %v", err)
	}
	after, err := svc.Get(ctx, ban.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if after.ReversedBy != "lead-1" || !after.ReversedAt.Equal(firstAt) {
		t.Fatalf("second reversal mutated the record: %+v", after)
	}
}

func TestReverseNonReversibleAndMissing(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	warn, err := svc.Create(ctx, "mod-1", "user-b", KindWarn, "rude", CreateParams{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Reverse(ctx, warn.ID, "lead-1", "x"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if _, err := svc.Reverse(ctx, "nope", "lead-1", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnmuteReversesLatestMute(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	now := base
	svc := NewService(store, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	old, err := svc.Create(ctx, "mod-1", "user-b", KindMute, "first", CreateParams{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	now = base.Add(time.Hour)
	latest, err := svc.Create(ctx, "mod-1", "user-b", KindMute, "second", CreateParams{DurationHours: 24})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reversed, err := svc.Unmute(ctx, "user-b", "mod-2", "resolved")
	if err != nil {
		t.Fatalf("Unmute: %v", err)
	}
	if reversed.ID != latest.ID {
		t.Fatalf("expected most recent mute %s reversed, got %s", latest.ID, reversed.ID)
	}

	// The older mute is still standing; a second unmute takes it.
	reversed2, err := svc.Unmute(ctx, "user-b", "mod-2", "resolved")
	if err != nil {
		t.Fatalf("second Unmute: %v", err)
	}
	if reversed2.ID != old.ID {
		t.Fatalf("expected older mute %s, got %s", old.ID, reversed2.ID)
	}

	if _, err := svc.Unmute(ctx, "user-b", "mod-2", "resolved"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("unmute with no active mute must fail InvalidState, got %v", err)
	}
	// No stored unmute records were created along the way.
	all, err := svc.List(ctx, Filter{TargetUserID: "user-b"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected exactly the two mute records, got %d", len(all))
	}
}

func TestActiveForUserFiltersLapsed(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	now := base
	svc := NewService(store, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := svc.Create(ctx, "mod-1", "user-b", KindMute, "24h mute", CreateParams{DurationHours: 24}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, "mod-1", "user-b", KindRestrict, "indefinite", CreateParams{}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	active, err := svc.ActiveForUser(ctx, "user-b")
	if err != nil {
		t.Fatalf("ActiveForUser: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active restrictions, got %d", len(active))
	}

	now = base.Add(25 * time.Hour)
	active, err = svc.ActiveForUser(ctx, "user-b")
	if err != nil {
		t.Fatalf("ActiveForUser: %v", err)
	}
	if len(active) != 1 || active[0].Kind != KindRestrict {
		t.Fatalf("expected only the indefinite restriction, got %+v", active)
	}
}

func TestListRejectsUnknownKindFilter(t *testing.T) {
	svc := NewService(NewMemoryStore())
	if _, err := svc.List(context.Background(), Filter{Kind: Kind("bogus")}); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}
