package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"warden.gg/internal/audit"
	"warden.gg/internal/auth"
	"warden.gg/internal/modaction"
	"warden.gg/internal/modqueue"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewWithDB(db), mock
}

func TestAssignmentCreateAndList(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("insert into role_assignments").
		WithArgs("ra-1", "user-1", "moderator", []byte(`["cms:edit"]`), "admin-1",
			sqlmock.AnyArg(), sqlmock.AnyArg(), true, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Assignments().Create(context.Background(), &auth.RoleAssignment{
		ID:          "ra-1",
		UserID:      "user-1",
		Role:        "moderator",
		Permissions: []string{"cms:edit"},
		AssignedBy:  "admin-1",
		IsActive:    true,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "user_id", "role", "permissions", "assigned_by", "notes", "expires_at", "is_active", "created_at"}).
		AddRow("ra-1", "user-1", "moderator", []byte(`["cms:edit"]`), "admin-1", nil, nil, true, now)
	mock.ExpectQuery("select id, user_id, role, permissions, assigned_by, notes, expires_at, is_active, created_at").
		WithArgs("user-1").
		WillReturnRows(rows)

	got, err := store.Assignments().ActiveForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ActiveForUser: %v", err)
	}
	if len(got) != 1 || got[0].Role != "moderator" || got[0].Permissions[0] != "cms:edit" {
		t.Fatalf("unexpected assignments: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeactivateMissingAssignment(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update role_assignments").
		WithArgs("user-1", "moderator").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Assignments().Deactivate(context.Background(), "user-1", "moderator")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkReversedConditionalUpdate(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("update moderation_actions").
		WithArgs("act-1", at, "lead-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mutated, err := store.Actions().MarkReversed(context.Background(), "act-1", "lead-1", "appeal", at)
	if err != nil {
		t.Fatalf("MarkReversed: %v", err)
	}
	if !mutated {
		t.Fatal("expected mutation")
	}

	// Losing the race: the guarded predicate matches no row.
	mock.ExpectExec("update moderation_actions").
		WithArgs("act-1", at, "lead-2", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mutated, err = store.Actions().MarkReversed(context.Background(), "act-1", "lead-2", "again", at)
	if err != nil {
		t.Fatalf("MarkReversed: %v", err)
	}
	if mutated {
		t.Fatal("expected no mutation on already-reversed action")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActionFindNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from moderation_actions").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Actions().Find(context.Background(), "missing")
	if !errors.Is(err, modaction.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueueTransitionDistinguishesMissingFromRace(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	// Row exists but is in a terminal state: no rows affected, id found.
	mock.ExpectExec("update queue_items").
		WithArgs("item-1", "mod-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select 1 from queue_items").
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	mutated, err := store.Queue().Assign(context.Background(), "item-1", "mod-1", at)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if mutated {
		t.Fatal("expected no mutation for guarded state")
	}

	// Row does not exist at all.
	mock.ExpectExec("update queue_items").
		WithArgs("item-2", "mod-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select 1 from queue_items").
		WithArgs("item-2").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	_, err = store.Queue().Assign(context.Background(), "item-2", "mod-1", at)
	if !errors.Is(err, modqueue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueueCountByModerator(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"assigned_moderator", "count"}).
		AddRow("mod-a", 3).
		AddRow("mod-b", 1)
	mock.ExpectQuery("select assigned_moderator, count").WillReturnRows(rows)

	counts, err := store.Queue().CountByModerator(context.Background())
	if err != nil {
		t.Fatalf("CountByModerator: %v", err)
	}
	if counts["mod-a"] != 3 || counts["mod-b"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditAppendNeverUpdates(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("insert into audit_log").
		WithArgs("al-1", "admin-1", "POST /v1/roles/assign", "success",
			sqlmock.AnyArg(), sqlmock.AnyArg(), 200, []byte(`{}`), sqlmock.AnyArg(), now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Audit().Append(context.Background(), &audit.Entry{
		ID:          "al-1",
		AdminUserID: "admin-1",
		Action:      "POST /v1/roles/assign",
		Category:    audit.CategorySuccess,
		Status:      200,
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
