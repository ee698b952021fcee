package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/atc-agent/atc/internal/settings"
	"github.com/atc-agent/atc/internal/store"
)

func openTest(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, path
}

func strp(s string) *string { return &s }

func TestSessionRoundtrip(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()

	var s settings.SessionSettings
	id, err := d.CreateSession(ctx, strp("client-1"), s)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	ids, err := d.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("ListSessions = %v, want [%v]", ids, id)
	}

	got, err := d.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.ID != id || *got.ClientID != "client-1" {
		t.Errorf("session = %+v", got)
	}
	if len(got.Messages) != 0 || len(got.ToolHistory) != 0 {
		t.Errorf("new session has history: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.CreatedAt.Location() != time.UTC {
		t.Errorf("created_at = %v", got.CreatedAt)
	}

	existed, err := d.DeleteSession(ctx, id)
	if err != nil || !existed {
		t.Fatalf("DeleteSession = %v, %v", existed, err)
	}
	existed, err = d.DeleteSession(ctx, id)
	if err != nil || existed {
		t.Fatalf("second DeleteSession = %v, %v", existed, err)
	}
	if _, err := d.GetSession(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetSession after delete: %v", err)
	}
}

func TestListSessionsNewestFirst(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()

	first, _ := d.CreateSession(ctx, nil, settings.SessionSettings{})
	second, _ := d.CreateSession(ctx, nil, settings.SessionSettings{})

	ids, err := d.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != second || ids[1] != first {
		t.Errorf("ListSessions = %v, want newest first", ids)
	}
}

func TestUpdateSettings(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()

	id, _ := d.CreateSession(ctx, nil, settings.SessionSettings{})
	s := settings.SessionSettings{ProjectRoot: strp("/tmp/work")}
	if err := d.UpdateSettings(ctx, id, s); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}

	got, err := d.GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Settings.ProjectRoot == nil || *got.Settings.ProjectRoot != "/tmp/work" {
		t.Errorf("settings = %+v", got.Settings)
	}

	if err := d.UpdateSettings(ctx, uuid.New(), s); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateSettings unknown id: %v", err)
	}
}

func TestAppendOrderingAndMonotonicity(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()
	id, _ := d.CreateSession(ctx, nil, settings.SessionSettings{})

	for i := 0; i < 10; i++ {
		ev := store.ToolEvent{Tool: "discovery.list", Summary: "walked tree", Status: store.StatusOK}
		if err := d.AppendToolEvent(ctx, id, ev); err != nil {
			t.Fatalf("AppendToolEvent: %v", err)
		}
	}

	events, err := d.ListToolEvents(ctx, id, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 10 {
		t.Fatalf("got %d events", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].CreatedAt.Before(events[i-1].CreatedAt) {
			t.Errorf("created_at not monotone at %d: %v < %v", i, events[i].CreatedAt, events[i-1].CreatedAt)
		}
	}
}

func TestPagination(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()
	id, _ := d.CreateSession(ctx, nil, settings.SessionSettings{})

	for i := 0; i < 5; i++ {
		msg := store.Message{Role: "user", ContentSummary: string(rune('a' + i))}
		if err := d.AppendMessage(ctx, id, msg); err != nil {
			t.Fatal(err)
		}
	}

	page, err := d.ListMessages(ctx, id, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].ContentSummary != "c" || page[1].ContentSummary != "d" {
		t.Errorf("page = %+v", page)
	}

	// Limit above the cap is clamped, not an error.
	all, err := d.ListMessages(ctx, id, 0, 10_000)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 5 {
		t.Errorf("got %d messages", len(all))
	}
}

func TestAppendToUnknownSession(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()

	err := d.AppendMessage(ctx, uuid.New(), store.Message{Role: "user", ContentSummary: "x"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("AppendMessage: %v", err)
	}
	err = d.AppendToolEvent(ctx, uuid.New(), store.ToolEvent{Tool: "t", Summary: "s", Status: store.StatusOK})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("AppendToolEvent: %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()
	id, _ := d.CreateSession(ctx, nil, settings.SessionSettings{})

	if err := d.AppendMessage(ctx, id, store.Message{Role: "user", ContentSummary: "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := d.AppendToolEvent(ctx, id, store.ToolEvent{Tool: "t", Summary: "s", Status: store.StatusOK}); err != nil {
		t.Fatal(err)
	}
	if err := d.AddContextItem(ctx, id, store.KindFile, "a.txt", "hello", 5); err != nil {
		t.Fatal(err)
	}

	if _, err := d.DeleteSession(ctx, id); err != nil {
		t.Fatal(err)
	}

	for _, table := range []string{"messages", "tool_events", "context_items"} {
		var n int
		if err := d.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+table+" WHERE session_id = ?", id.String(),
		).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 0 {
			t.Errorf("%s still has %d rows for deleted session", table, n)
		}
	}
}

func TestRuleUpsertIdempotent(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()

	if err := d.UpsertRule(ctx, "quality", "Always lint."); err != nil {
		t.Fatal(err)
	}
	if err := d.UpsertRule(ctx, "quality", "Always lint."); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rules").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rules count = %d, want 1", n)
	}

	r, err := d.GetRule(ctx, "quality")
	if err != nil {
		t.Fatal(err)
	}
	if r.Content != "Always lint." {
		t.Errorf("content = %q", r.Content)
	}

	if err := d.UpsertRule(ctx, "quality", "Lint and test."); err != nil {
		t.Fatal(err)
	}
	r, _ = d.GetRule(ctx, "quality")
	if r.Content != "Lint and test." {
		t.Errorf("content after update = %q", r.Content)
	}

	if _, err := d.GetRule(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetRule missing: %v", err)
	}
}

func TestDurabilityAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "atc.db")

	d, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := d.CreateSession(ctx, strp("cli"), settings.SessionSettings{})
	if err := d.AppendMessage(ctx, id, store.Message{Role: "user", ContentSummary: "survive me"}); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen on the same path: migrations must be idempotent and data intact.
	d2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()

	ids, err := d2.ListSessions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != id {
		t.Fatalf("sessions after reopen = %v", ids)
	}
	got, err := d2.GetSession(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Messages) != 1 || got.Messages[0].ContentSummary != "survive me" {
		t.Errorf("messages after reopen = %+v", got.Messages)
	}
}

func TestPragmas(t *testing.T) {
	d, _ := openTest(t)
	ctx := context.Background()

	var mode string
	if err := d.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}

	var timeout int
	if err := d.db.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatal(err)
	}
	if timeout < 5000 {
		t.Errorf("busy_timeout = %d, want >= 5000", timeout)
	}
}
