package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"sponsorship/internal/adapters/storage"
	domain "sponsorship/internal/domain/audit"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := storage.InitDB(db); err != nil {
		t.Fatalf("init db: %v", err)
	}
	return NewSQLiteStore(db)
}

var base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// TestSQLiteStore_SaveAndList tests newest-first ordering and the round trip of every field.
func TestSQLiteStore_SaveAndList(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	events := []domain.Event{
		domain.NewEvent("e1", base, "staff", domain.CategoryExport, domain.ActionExport),
		domain.NewEvent("e2", base.Add(time.Minute), "staff", domain.CategoryEmail, domain.ActionSend).
			WithSeverity(domain.SeverityWarning).
			WithResource("batch-1").
			WithDescription("1 sent, 1 failed").
			WithMetadata(`{"sent":1,"failed":1}`),
	}
	for _, e := range events {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := store.List(ctx, Filter{}, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "e2" {
		t.Fatalf("expected newest first, got %+v", got)
	}
	if got[0] != events[1] {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], events[1])
	}
}

// TestSQLiteStore_ListFilter tests category, resource and time filters plus the limit.
func TestSQLiteStore_ListFilter(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	for i, c := range []domain.Category{domain.CategoryEmail, domain.CategoryImport, domain.CategoryEmail} {
		e := domain.NewEvent(string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour), "cli", c, domain.ActionImport).
			WithResource(string(c))
		if err := store.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := store.List(ctx, Filter{Category: domain.CategoryEmail}, 10)
	if len(got) != 2 {
		t.Errorf("category filter: got %d events", len(got))
	}
	got, _ = store.List(ctx, Filter{ResourceID: "import"}, 10)
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("resource filter: got %+v", got)
	}
	got, _ = store.List(ctx, Filter{Since: base.Add(90 * time.Minute)}, 10)
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("since filter: got %+v", got)
	}
	got, _ = store.List(ctx, Filter{}, 1)
	if len(got) != 1 {
		t.Errorf("limit: got %d events", len(got))
	}
}

// TestSQLiteStore_SaveRejectsInvalid tests that events without an ID are refused.
func TestSQLiteStore_SaveRejectsInvalid(t *testing.T) {
	store := setupTestDB(t)
	if err := store.Save(context.Background(), domain.Event{Action: domain.ActionSend}); err == nil {
		t.Error("expected an error for an event without ID")
	}
}
