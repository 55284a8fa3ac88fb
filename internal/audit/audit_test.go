package audit

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestSanitizeRedactsNestedSensitiveKeys(t *testing.T) {
	in := map[string]any{
		"password": "x",
		"nested": map[string]any{
			"token": "y",
			"ok":    1,
		},
	}
	want := map[string]any{
		"password": Redacted,
		"nested": map[string]any{
			"token": Redacted,
			"ok":    1,
		},
	}
	got := Sanitize(in)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sanitize mismatch:\n got %#v\nwant %#v", got, want)
	}
	// Input stays untouched.
	if in["password"] != "x" {
		t.Fatalf("input mutated: %#v", in)
	}
}

func TestSanitizeWalksArraysAndMatchesSubstrings(t *testing.T) {
	in := []any{
		map[string]any{"api_key": "k", "Authorization": "Bearer x", "phone_number": "555"},
		map[string]any{"session_id": "s", "display_name": "safe"},
		"plain",
	}
	out, ok := Sanitize(in).([]any)
	if !ok {
		t.Fatalf("expected slice, got %T", Sanitize(in))
	}
	first := out[0].(map[string]any)
	for _, k := range []string{"api_key", "Authorization", "phone_number"} {
		if first[k] != Redacted {
			t.Fatalf("key %q not redacted: %v", k, first[k])
		}
	}
	second := out[1].(map[string]any)
	if second["session_id"] != Redacted || second["display_name"] != "safe" {
		t.Fatalf("substring matching failed: %#v", second)
	}
	if out[2] != "plain" {
		t.Fatalf("scalar element changed: %v", out[2])
	}
}

func TestCategoryForStatus(t *testing.T) {
	cases := map[int]Category{
		200: CategorySuccess,
		201: CategorySuccess,
		400: CategoryClientError,
		401: CategoryAuthReject,
		403: CategoryAuthReject,
		404: CategoryClientError,
		429: CategoryRateLimited,
		500: CategoryServerError,
	}
	for status, want := range cases {
		if got := CategoryForStatus(status); got != want {
			t.Fatalf("status %d: got %s want %s", status, got, want)
		}
	}
}

func TestRecordSanitizesAndPersists(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	rec := NewRecorder(store, WithClock(func() time.Time { return now }))

	rec.Record(context.Background(), Params{
		AdminUserID: "admin-1",
		Method:      "POST",
		Path:        "/v1/users/user-b/mute",
		Status:      201,
		TargetType:  "user",
		TargetID:    "user-b",
		Body:        map[string]any{"reason": "spam", "session_token": "abc"},
		IPAddress:   "203.0.113.9",
	})

	entries, err := rec.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.AdminUserID != "admin-1" || e.Action != "POST /v1/users/user-b/mute" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Category != CategorySuccess || !e.CreatedAt.Equal(now) {
		t.Fatalf("unexpected entry: %+v", e)
	}

	var params map[string]any
	if err := json.Unmarshal(e.Parameters, &params); err != nil {
		t.Fatalf("parameters not JSON: %v", err)
	}
	body := params["body"].(map[string]any)
	if body["session_token"] != Redacted || body["reason"] != "spam" {
		t.Fatalf("body not sanitized: %#v", body)
	}
}

func TestRecordDefaultsActorToUnknown(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store)
	rec.Record(context.Background(), Params{Method: "GET", Path: "/v1/audit", Status: 401})

	entries, err := rec.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].AdminUserID != UnknownActor {
		t.Fatalf("expected unknown actor entry, got %+v", entries)
	}
	if entries[0].Category != CategoryAuthReject {
		t.Fatalf("expected auth_rejected, got %s", entries[0].Category)
	}
}

func TestRecordSwallowsStoreFailure(t *testing.T) {
	store := NewMemoryStore()
	store.Err = errors.New("pg down")
	rec := NewRecorder(store)

	// Must not panic or surface the error.
	rec.Record(context.Background(), Params{Method: "GET", Path: "/v1/audit", Status: 200})
}

func TestCaptureRecordsOnce(t *testing.T) {
	c := &Capture{}
	ctx := WithCapture(context.Background(), c)

	got := CaptureFromContext(ctx)
	if got != c {
		t.Fatal("capture not round-tripped through context")
	}
	got.SetActor("admin-1")
	got.SetTarget("user", "user-b")

	actor, targetType, targetID := got.Snapshot()
	if actor != "admin-1" || targetType != "user" || targetID != "user-b" {
		t.Fatalf("snapshot mismatch: %s %s %s", actor, targetType, targetID)
	}
	if !got.MarkRecorded() {
		t.Fatal("first MarkRecorded must succeed")
	}
	if got.MarkRecorded() {
		t.Fatal("second MarkRecorded must report already recorded")
	}
}

func TestCaptureToleratesNil(t *testing.T) {
	c := CaptureFromContext(context.Background())
	if c != nil {
		t.Fatal("expected nil capture outside audited requests")
	}
	c.SetActor("x")
	c.SetTarget("t", "id")
	if c.MarkRecorded() {
		t.Fatal("nil capture must never claim the record")
	}
}

func TestListFilters(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store)
	ctx := context.Background()

	rec.Record(ctx, Params{AdminUserID: "a", Method: "POST", Path: "/v1/roles/assign", Status: 200, TargetType: "role", TargetID: "user-1"})
	rec.Record(ctx, Params{AdminUserID: "b", Method: "POST", Path: "/v1/users/user-2/ban", Status: 403, TargetType: "user", TargetID: "user-2"})
	rec.Record(ctx, Params{AdminUserID: "a", Method: "GET", Path: "/v1/audit", Status: 200})

	byActor, err := rec.List(ctx, Filter{AdminUserID: "a"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byActor) != 2 {
		t.Fatalf("expected 2 entries for actor a, got %d", len(byActor))
	}
	// Newest first.
	if byActor[0].Action != "GET /v1/audit" {
		t.Fatalf("expected newest first, got %+v", byActor[0])
	}

	rejected, err := rec.List(ctx, Filter{Category: CategoryAuthReject})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rejected) != 1 || rejected[0].TargetID != "user-2" {
		t.Fatalf("unexpected auth_rejected entries: %+v", rejected)
	}
}
