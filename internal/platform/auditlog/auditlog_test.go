package auditlog

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/animus-labs/actiontracker/internal/platform/httpserver"
	"github.com/animus-labs/actiontracker/internal/testutil"
)

func TestEventValidate(t *testing.T) {
	ok := Event{
		OccurredAt:   time.Now(),
		Actor:        "anonymous",
		Action:       ActionProjectCreate,
		ResourceType: ResourceProject,
		ResourceID:   "1",
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	missing := ok
	missing.ResourceID = "  "
	if err := missing.Validate(); err == nil {
		t.Fatalf("expected error for blank resource id")
	}
}

func TestInsertListVerify(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 12, 30, 45, 123456789, time.UTC)
	id, err := Insert(ctx, db, Event{
		OccurredAt:   at,
		Action:       ActionProjectCreate,
		ResourceType: ResourceProject,
		ResourceID:   "7",
		RequestID:    "req-1",
		IP:           net.ParseIP("10.0.0.1"),
		UserAgent:    "curl/8",
		Payload:      map[string]any{"name": "Alpha"},
	})
	if err != nil {
		t.Fatalf("Insert() err=%v", err)
	}
	if id <= 0 {
		t.Fatalf("Insert() id=%d", id)
	}
	if _, err := Insert(ctx, db, Event{
		OccurredAt:   at.Add(time.Second),
		Action:       ActionActionCreate,
		ResourceType: ResourceAction,
		ResourceID:   "3",
	}); err != nil {
		t.Fatalf("Insert() err=%v", err)
	}

	events, err := List(ctx, db, "", 0)
	if err != nil {
		t.Fatalf("List() err=%v", err)
	}
	if len(events) != 2 {
		t.Fatalf("List() len=%d, want 2", len(events))
	}
	if events[0].Action != ActionActionCreate {
		t.Fatalf("List() newest first: got %q", events[0].Action)
	}
	first := events[1]
	if first.Actor != AnonymousActor {
		t.Fatalf("actor=%q, want %q", first.Actor, AnonymousActor)
	}
	if !first.OccurredAt.Equal(at.Truncate(time.Millisecond)) {
		t.Fatalf("occurred_at=%s", first.OccurredAt)
	}
	if first.IP != "10.0.0.1" || first.RequestID != "req-1" {
		t.Fatalf("unexpected row: %+v", first)
	}
	for _, ev := range events {
		if err := Verify(ev); err != nil {
			t.Fatalf("Verify(%d) err=%v", ev.ID, err)
		}
	}

	projects, err := List(ctx, db, ResourceProject, 10)
	if err != nil {
		t.Fatalf("List(project) err=%v", err)
	}
	if len(projects) != 1 || projects[0].ResourceID != "7" {
		t.Fatalf("List(project)=%+v", projects)
	}
}

func TestVerify_DetectsTampering(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()

	if _, err := Insert(ctx, db, Event{
		Action:       ActionProjectDelete,
		ResourceType: ResourceProject,
		ResourceID:   "9",
	}); err != nil {
		t.Fatalf("Insert() err=%v", err)
	}
	if _, err := db.ExecContext(ctx, `UPDATE audit_events SET resource_id = '10'`); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	events, err := List(ctx, db, "", 1)
	if err != nil {
		t.Fatalf("List() err=%v", err)
	}
	if err := Verify(events[0]); !errors.Is(err, ErrIntegrityMismatch) {
		t.Fatalf("Verify() err=%v, want ErrIntegrityMismatch", err)
	}
}

func TestRecorder_SwallowsFailures(t *testing.T) {
	db := testutil.NewTestDB(t)
	if _, err := db.Exec(`DROP TABLE audit_events`); err != nil {
		t.Fatalf("drop: %v", err)
	}

	var logs strings.Builder
	rec := NewRecorder(db, slog.New(slog.NewJSONHandler(&logs, nil)))
	rec.Record(context.Background(), Event{
		Action:       ActionProjectCreate,
		ResourceType: ResourceProject,
		ResourceID:   "1",
	})
	if !strings.Contains(logs.String(), "audit event dropped") {
		t.Fatalf("expected dropped event to be logged, got %q", logs.String())
	}

	var nilRecorder *Recorder
	nilRecorder.Record(context.Background(), Event{})
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/projects", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	r.Header.Set(httpserver.RequestIDHeader, "abc")
	r.Header.Set("User-Agent", "tests")

	ev := FromRequest(r, ActionProjectCreate, ResourceProject, "5", nil)
	if ev.RequestID != "abc" || ev.UserAgent != "tests" || ev.IP.String() != "192.0.2.1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}
}
