package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lamconf/internal/domain"
)

func updateEvent(actorType string, status int) *AuditEvent {
	return &AuditEvent{
		Actor:        "192.0.2.10",
		ActorType:    actorType,
		Action:       ActionUpdate,
		ResourceType: ResourceSettings,
		ResourceID:   SettingsResourceID,
		StatusCode:   status,
	}
}

func TestMemoryAuditLogger_Log(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()

	if err := logger.Log(ctx, updateEvent(ActorTypeAdmin, 200)); err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	events, total, err := logger.List(ctx, ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("expected 1 event, got total=%d len=%d", total, len(events))
	}
	if events[0].ID == "" {
		t.Error("expected ID to be assigned")
	}
	if events[0].Timestamp.IsZero() {
		t.Error("expected Timestamp to be assigned")
	}
	if events[0].ResourceID != SettingsResourceID {
		t.Errorf("expected ResourceID %q, got %q", SettingsResourceID, events[0].ResourceID)
	}
}

func TestMemoryAuditLogger_Log_NilEvent(t *testing.T) {
	if err := NewMemoryAuditLogger().Log(context.Background(), nil); err != nil {
		t.Fatalf("Log(nil) should not error, got %v", err)
	}
}

func TestMemoryAuditLogger_NewestFirstAndMaxEvents(t *testing.T) {
	logger := NewMemoryAuditLogger(WithMaxEvents(3))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		e := updateEvent(ActorTypeAdmin, 200)
		e.RequestID = fmt.Sprintf("req-%d", i)
		if err := logger.Log(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	events, total, _ := logger.List(ctx, ListOptions{})
	if total != 3 {
		t.Fatalf("expected 3 retained events, got %d", total)
	}
	for i, want := range []string{"req-4", "req-3", "req-2"} {
		if events[i].RequestID != want {
			t.Errorf("events[%d].RequestID = %q, want %q", i, events[i].RequestID, want)
		}
	}
}

func TestMemoryAuditLogger_List_Filtering(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()

	_ = logger.Log(ctx, updateEvent(ActorTypeAdmin, 200))
	_ = logger.Log(ctx, updateEvent(ActorTypeAdmin, 400))
	_ = logger.Log(ctx, updateEvent(ActorTypeAnonymous, 401))
	login := updateEvent(ActorTypeAdmin, 200)
	login.Action = ActionLogin
	_ = logger.Log(ctx, login)

	tests := []struct {
		name string
		opts ListOptions
		want int
	}{
		{"no filter", ListOptions{}, 4},
		{"admin only", ListOptions{ActorType: ActorTypeAdmin}, 3},
		{"anonymous only", ListOptions{ActorType: ActorTypeAnonymous}, 1},
		{"updates", ListOptions{Action: ActionUpdate}, 3},
		{"logins", ListOptions{Action: ActionLogin}, 1},
		{"by actor", ListOptions{Actor: "192.0.2.10"}, 4},
		{"unknown actor", ListOptions{Actor: "198.51.100.1"}, 0},
		{"by resource type", ListOptions{ResourceType: ResourceSettings}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := logger.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
		})
	}
}

func TestMemoryAuditLogger_List_TimeFiltering(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		e := updateEvent(ActorTypeAdmin, 200)
		e.Timestamp = base.Add(time.Duration(i) * time.Hour)
		_ = logger.Log(ctx, e)
	}

	since := base.Add(30 * time.Minute)
	until := base.Add(90 * time.Minute)
	_, total, _ := logger.List(ctx, ListOptions{Since: &since})
	if total != 2 {
		t.Errorf("since: total = %d, want 2", total)
	}
	_, total, _ = logger.List(ctx, ListOptions{Since: &since, Until: &until})
	if total != 1 {
		t.Errorf("since+until: total = %d, want 1", total)
	}
}

func TestMemoryAuditLogger_List_Pagination(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		_ = logger.Log(ctx, updateEvent(ActorTypeAdmin, 200))
	}

	tests := []struct {
		name    string
		opts    ListOptions
		wantLen int
	}{
		{"first page", ListOptions{Limit: 10}, 10},
		{"last page", ListOptions{Limit: 10, Offset: 20}, 5},
		{"offset past end", ListOptions{Limit: 10, Offset: 30}, 0},
		{"default limit", ListOptions{}, 25},
		{"limit capped", ListOptions{Limit: 5000}, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, total, err := logger.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if total != 25 {
				t.Errorf("total = %d, want 25", total)
			}
			if len(events) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(events), tt.wantLen)
			}
		})
	}
}

func TestMemoryAuditLogger_GetByResource(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()

	_ = logger.Log(ctx, updateEvent(ActorTypeAdmin, 200))
	other := updateEvent(ActorTypeAdmin, 200)
	other.ResourceID = "other"
	_ = logger.Log(ctx, other)

	events, err := logger.GetByResource(ctx, ResourceSettings, SettingsResourceID)
	if err != nil {
		t.Fatalf("GetByResource() error = %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
}

func TestMemoryAuditLogger_Concurrency(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if err := logger.Log(ctx, updateEvent(ActorTypeAdmin, 200)); err != nil {
					t.Errorf("Log() error = %v", err)
				}
			}
		}()
		go func() {
			defer wg.Done()
			if _, _, err := logger.List(ctx, ListOptions{Limit: 10}); err != nil {
				t.Errorf("List() error = %v", err)
			}
		}()
	}
	wg.Wait()

	_, total, _ := logger.List(ctx, ListOptions{})
	if total != 500 {
		t.Errorf("expected 500 events, got %d", total)
	}
}

func TestMemoryAuditLogger_ImmutableResults(t *testing.T) {
	logger := NewMemoryAuditLogger()
	ctx := context.Background()

	event := updateEvent(ActorTypeAdmin, 200)
	event.Changes = &Changes{
		Before: map[string]any{"host": "old"},
		After:  map[string]any{"host": "new"},
	}
	_ = logger.Log(ctx, event)

	event.Actor = "tampered"
	event.Changes.Before["host"] = "tampered"

	events, _, _ := logger.List(ctx, ListOptions{})
	if events[0].Actor != "192.0.2.10" {
		t.Errorf("Actor modification leaked: %q", events[0].Actor)
	}
	if events[0].Changes.Before["host"] != "old" {
		t.Errorf("Changes modification leaked: %v", events[0].Changes.Before["host"])
	}

	events[0].Changes.After["host"] = "tampered"
	again, _, _ := logger.List(ctx, ListOptions{})
	if again[0].Changes.After["host"] != "new" {
		t.Errorf("returned modification leaked: %v", again[0].Changes.After["host"])
	}
}

func TestDiffSettings(t *testing.T) {
	before := domain.DefaultSettings()

	t.Run("no changes", func(t *testing.T) {
		if c := DiffSettings(before, before, false); c != nil {
			t.Errorf("expected nil, got %+v", c)
		}
	})

	t.Run("changed fields only", func(t *testing.T) {
		after := before
		after.Host = "ldap.example.com"
		after.UseSSL = true
		c := DiffSettings(before, after, false)
		if c == nil {
			t.Fatal("expected changes")
		}
		if len(c.After) != 2 {
			t.Errorf("expected 2 changed fields, got %v", c.After)
		}
		if c.Before["host"] != "localhost" || c.After["host"] != "ldap.example.com" {
			t.Errorf("host change = %v -> %v", c.Before["host"], c.After["host"])
		}
		if c.After["ssl"] != true {
			t.Errorf("ssl change = %v", c.After["ssl"])
		}
	})

	t.Run("password rotation never records the value", func(t *testing.T) {
		after := before
		after.PasswordHash = []byte("new-hash")
		c := DiffSettings(before, after, true)
		if c == nil || c.After["password"] != "changed" {
			t.Fatalf("expected password marker, got %+v", c)
		}
		if _, ok := c.Before["password"]; ok {
			t.Error("before state must not mention the password")
		}
	})
}

func TestChangeKeys(t *testing.T) {
	before := domain.DefaultSettings()
	after := before
	after.Port = "636"
	after.Host = "ldap"

	got := ChangeKeys(DiffSettings(before, after, true))
	want := []string{"host", "password", "port"}
	if len(got) != len(want) {
		t.Fatalf("ChangeKeys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ChangeKeys = %v, want %v", got, want)
		}
	}
	if ChangeKeys(nil) != nil {
		t.Fatalf("nil changes should have no keys")
	}
}
