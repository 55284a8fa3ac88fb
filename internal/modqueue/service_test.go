package modqueue

import (
	"context"
	"errors"
	"testing"
	"time"
)

type staticDirectory struct {
	mods []string
	err  error
}

func (d staticDirectory) EligibleModerators(ctx context.Context) ([]string, error) {
	return d.mods, d.err
}

func newTestService(store *MemoryStore, mods ...string) *Service {
	return NewService(store, staticDirectory{mods: mods})
}

func TestSubmitValidatesInput(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	ctx := context.Background()

	item, err := svc.Submit(ctx, TypeReport, SubmitParams{ReportedUserID: "user-b", Reason: "harassment"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if item.Status != StatusOpen || item.Priority != 5 {
		t.Fatalf("expected open item at default priority, got %+v", item)
	}

	if _, err := svc.Submit(ctx, ItemType("gossip"), SubmitParams{}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := svc.Submit(ctx, TypeReport, SubmitParams{Priority: 11}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for priority 11, got %v", err)
	}
	if _, err := ParseItemType(" Ban_Evasion "); err != nil {
		t.Fatalf("ParseItemType normalization failed: %v", err)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	item, err := svc.Submit(ctx, TypeReport, SubmitParams{Reason: "spam"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Cannot start or complete before assignment.
	if _, err := svc.Start(ctx, item.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("start of open item must fail, got %v", err)
	}
	if _, err := svc.Complete(ctx, item.ID, "done", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("complete of open item must fail, got %v", err)
	}

	assigned, err := svc.Assign(ctx, item.ID, "mod-1")
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if assigned.Status != StatusAssigned || assigned.AssignedModerator != "mod-1" {
		t.Fatalf("assignment not recorded: %+v", assigned)
	}

	// Re-assignment while assigned overwrites the assignee.
	reassigned, err := svc.Assign(ctx, item.ID, "mod-2")
	if err != nil {
		t.Fatalf("re-Assign: %v", err)
	}
	if reassigned.AssignedModerator != "mod-2" {
		t.Fatalf("expected mod-2, got %q", reassigned.AssignedModerator)
	}

	started, err := svc.Start(ctx, item.ID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", started.Status)
	}

	done, err := svc.Complete(ctx, item.ID, "content removed", "ban")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != StatusCompleted || done.CompletedAt == nil || done.Resolution != "content removed" {
		t.Fatalf("completion not recorded: %+v", done)
	}

	// Finished items are frozen; the error names both states.
	_, err = svc.Assign(ctx, item.ID, "mod-3")
	var se *StateError
	if !errors.As(err, &se) {
		t.Fatalf("expected StateError, got %v", err)
	}
	if se.Current != StatusCompleted || se.Attempted != StatusAssigned {
		t.Fatalf("unexpected state error: %+v", se)
	}
	if _, err := svc.Complete(ctx, item.ID, "again", ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double complete must fail, got %v", err)
	}
}

func TestSkipRequiresAssignment(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	ctx := context.Background()

	item, err := svc.Submit(ctx, TypeAppeal, SubmitParams{})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := svc.Skip(ctx, item.ID, "duplicate"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("skip of open item must fail, got %v", err)
	}
	if _, err := svc.Assign(ctx, item.ID, "mod-1"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	skipped, err := svc.Skip(ctx, item.ID, "duplicate")
	if err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if skipped.Status != StatusSkipped || skipped.Resolution != "duplicate" {
		t.Fatalf("skip not recorded: %+v", skipped)
	}
}

func TestBulkAssignReturnsOnlyMutated(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	a, _ := svc.Submit(ctx, TypeReport, SubmitParams{})
	b, _ := svc.Submit(ctx, TypeReport, SubmitParams{})
	c, _ := svc.Submit(ctx, TypeReport, SubmitParams{})

	// Finish c so it cannot be bulk-assigned.
	if _, err := svc.Assign(ctx, c.ID, "mod-9"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := svc.Complete(ctx, c.ID, "done", ""); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err := svc.BulkAssign(ctx, []string{a.ID, "missing", c.ID, b.ID}, "mod-1")
	if err != nil {
		t.Fatalf("BulkAssign: %v", err)
	}
	if len(got) != 2 || got[0] != a.ID || got[1] != b.ID {
		t.Fatalf("expected only the two open items, got %v", got)
	}
	for _, id := range got {
		item, err := svc.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if item.AssignedModerator != "mod-1" {
			t.Fatalf("item %s not assigned to mod-1: %+v", id, item)
		}
	}
}

func TestAutoAssignBalancesLoad(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, "mod-a", "mod-b", "mod-c")
	ctx := context.Background()

	// mod-a already carries two items, mod-b one.
	for i := 0; i < 2; i++ {
		it, _ := svc.Submit(ctx, TypeReport, SubmitParams{})
		if _, err := svc.Assign(ctx, it.ID, "mod-a"); err != nil {
			t.Fatalf("Assign: %v", err)
		}
	}
	it, _ := svc.Submit(ctx, TypeReport, SubmitParams{})
	if _, err := svc.Assign(ctx, it.ID, "mod-b"); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	for i := 0; i < 6; i++ {
		if _, err := svc.Submit(ctx, TypeReport, SubmitParams{}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}

	assigned, err := svc.AutoAssign(ctx, "")
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if len(assigned) != 6 {
		t.Fatalf("expected 6 assignments, got %d", len(assigned))
	}

	counts, err := store.CountByModerator(ctx)
	if err != nil {
		t.Fatalf("CountByModerator: %v", err)
	}
	// 9 items over 3 moderators balances to 3 each.
	for _, mod := range []string{"mod-a", "mod-b", "mod-c"} {
		if counts[mod] != 3 {
			t.Fatalf("expected balanced load of 3, got %v", counts)
		}
	}
}

func TestAutoAssignHonorsPriorityOrderAndTypeFilter(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store, "mod-a")
	ctx := context.Background()

	low, _ := svc.Submit(ctx, TypeReport, SubmitParams{Priority: 2})
	high, _ := svc.Submit(ctx, TypeReport, SubmitParams{Priority: 9})
	appeal, _ := svc.Submit(ctx, TypeAppeal, SubmitParams{Priority: 10})

	assigned, err := svc.AutoAssign(ctx, TypeReport)
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if len(assigned) != 2 {
		t.Fatalf("expected 2 report assignments, got %d", len(assigned))
	}
	if assigned[0].ID != high.ID || assigned[1].ID != low.ID {
		t.Fatalf("expected priority order %s,%s got %s,%s", high.ID, low.ID, assigned[0].ID, assigned[1].ID)
	}
	left, err := svc.Get(ctx, appeal.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if left.Status != StatusOpen {
		t.Fatalf("appeal must remain untouched, got %+v", left)
	}
}

func TestAutoAssignNoEligibleModerators(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	item, _ := svc.Submit(ctx, TypeReport, SubmitParams{})
	assigned, err := svc.AutoAssign(ctx, "")
	if err != nil {
		t.Fatalf("AutoAssign: %v", err)
	}
	if len(assigned) != 0 {
		t.Fatalf("expected no assignments, got %v", assigned)
	}
	got, err := svc.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusOpen || got.AssignedModerator != "" {
		t.Fatalf("item must stay open, got %+v", got)
	}
}

func TestEscalateOverdueIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	now := base
	svc := NewService(store, staticDirectory{}, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	stale, _ := svc.Submit(ctx, TypeReport, SubmitParams{Priority: 4})
	capped, _ := svc.Submit(ctx, TypeReport, SubmitParams{Priority: 10})

	now = base.Add(30 * time.Hour)
	fresh, _ := svc.Submit(ctx, TypeReport, SubmitParams{Priority: 4})

	touched, err := svc.EscalateOverdue(ctx, 24)
	if err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	if len(touched) != 1 || touched[0].ID != stale.ID || touched[0].Priority != 5 {
		t.Fatalf("expected only the stale item bumped to 5, got %+v", touched)
	}

	// A second sweep at the same clock bumps the same item again, one
	// step only, and still skips the fresh and capped items.
	touched, err = svc.EscalateOverdue(ctx, 24)
	if err != nil {
		t.Fatalf("EscalateOverdue: %v", err)
	}
	if len(touched) != 1 || touched[0].Priority != 6 {
		t.Fatalf("expected one more single-step bump, got %+v", touched)
	}

	for id, want := range map[string]int{capped.ID: 10, fresh.ID: 4} {
		got, err := svc.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Priority != want {
			t.Fatalf("item %s priority changed to %d, want %d", id, got.Priority, want)
		}
	}
}

func TestEscalateNeverExceedsCap(t *testing.T) {
	store := NewMemoryStore()
	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	now := base
	svc := NewService(store, staticDirectory{}, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	item, _ := svc.Submit(ctx, TypeReport, SubmitParams{Priority: 9})
	now = base.Add(48 * time.Hour)

	for i := 0; i < 3; i++ {
		if _, err := svc.EscalateOverdue(ctx, 24); err != nil {
			t.Fatalf("EscalateOverdue: %v", err)
		}
	}
	got, err := svc.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Priority != MaxPriority {
		t.Fatalf("expected cap at %d, got %d", MaxPriority, got.Priority)
	}
}

func TestUpdatePriorityValidation(t *testing.T) {
	svc := newTestService(NewMemoryStore())
	ctx := context.Background()

	item, _ := svc.Submit(ctx, TypeReport, SubmitParams{})
	if _, err := svc.UpdatePriority(ctx, item.ID, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	updated, err := svc.UpdatePriority(ctx, item.ID, 8)
	if err != nil {
		t.Fatalf("UpdatePriority: %v", err)
	}
	if updated.Priority != 8 {
		t.Fatalf("expected priority 8, got %d", updated.Priority)
	}
}

func TestGetWorkload(t *testing.T) {
	store := NewMemoryStore()
	svc := newTestService(store)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		it, _ := svc.Submit(ctx, TypeReport, SubmitParams{})
		if _, err := svc.Assign(ctx, it.ID, "mod-a"); err != nil {
			t.Fatalf("Assign: %v", err)
		}
	}
	it, _ := svc.Submit(ctx, TypeReport, SubmitParams{})
	if _, err := svc.Assign(ctx, it.ID, "mod-b"); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	all, err := svc.GetWorkload(ctx, "")
	if err != nil {
		t.Fatalf("GetWorkload: %v", err)
	}
	if all.Total != 3 || all.ByModerator["mod-a"] != 2 || all.ByModerator["mod-b"] != 1 {
		t.Fatalf("unexpected workload: %+v", all)
	}

	one, err := svc.GetWorkload(ctx, "mod-a")
	if err != nil {
		t.Fatalf("GetWorkload: %v", err)
	}
	if one.Total != 2 {
		t.Fatalf("expected 2 for mod-a, got %+v", one)
	}
}

func TestStoreFaultPropagates(t *testing.T) {
	store := NewMemoryStore()
	store.Err = errors.New("pg down")
	svc := newTestService(store, "mod-a")
	ctx := context.Background()

	if _, err := svc.Submit(ctx, TypeReport, SubmitParams{}); err == nil {
		t.Fatal("expected storage error from Submit")
	}
	if _, err := svc.AutoAssign(ctx, ""); err == nil {
		t.Fatal("expected storage error from AutoAssign")
	}
}
