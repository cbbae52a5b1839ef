//go:build sqlite

package audit

import (
	"context"
	"path/filepath"
	"testing"

	"lamconf/internal/storage/sqlite"
)

func newSQLiteLogger(t *testing.T) *SQLiteAuditLogger {
	t.Helper()
	store, err := sqlite.New("file:" + filepath.Join(t.TempDir(), "audit.db") + "?_fk=1")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewSQLiteAuditLoggerFromDB(store.DB())
}

func TestSQLiteAuditLogger_LogAndList(t *testing.T) {
	logger := newSQLiteLogger(t)
	ctx := context.Background()

	ok := updateEvent(ActorTypeAdmin, 200)
	ok.RequestID = "req-1"
	ok.Changes = &Changes{
		Before: map[string]any{"port": "389"},
		After:  map[string]any{"port": "636", "password": "changed"},
	}
	if err := logger.Log(ctx, ok); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	denied := updateEvent(ActorTypeAnonymous, 401)
	denied.Detail = "password.invalid"
	if err := logger.Log(ctx, denied); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	events, total, err := logger.List(ctx, ListOptions{ActorType: ActorTypeAdmin})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("expected 1 admin event, got total=%d len=%d", total, len(events))
	}
	got := events[0]
	if got.ID == "" || got.Timestamp.IsZero() {
		t.Errorf("ID/Timestamp not assigned: %+v", got)
	}
	if got.RequestID != "req-1" {
		t.Errorf("RequestID = %q", got.RequestID)
	}
	if got.Changes == nil || got.Changes.After["port"] != "636" || got.Changes.After["password"] != "changed" {
		t.Errorf("changes not round-tripped: %+v", got.Changes)
	}

	events, _, err = logger.List(ctx, ListOptions{ActorType: ActorTypeAnonymous})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(events) != 1 || events[0].Detail != "password.invalid" || events[0].StatusCode != 401 {
		t.Errorf("unexpected anonymous events: %+v", events)
	}

	all, err := logger.GetByResource(ctx, ResourceSettings, SettingsResourceID)
	if err != nil {
		t.Fatalf("GetByResource() error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 events, got %d", len(all))
	}
}

func TestSQLiteAuditLogger_Pagination(t *testing.T) {
	logger := newSQLiteLogger(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		if err := logger.Log(ctx, updateEvent(ActorTypeAdmin, 200)); err != nil {
			t.Fatal(err)
		}
	}
	events, total, err := logger.List(ctx, ListOptions{Limit: 5, Offset: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 12 || len(events) != 2 {
		t.Errorf("total=%d len=%d, want 12 and 2", total, len(events))
	}
}
