package bulb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupHistoryTestDB creates an in-memory SQLite database with the
// state_history table.
func setupHistoryTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE state_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bulb TEXT NOT NULL,
			state TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'command',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_state_history_bulb ON state_history(bulb, created_at DESC);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestHistoryRecordAndGet(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	state := State{
		Name:    "lamp",
		Online:  true,
		PowerOn: true,
		Red:     255,
		Green:   128,
	}

	if err := repo.RecordStateChange(ctx, "lamp", state, HistorySourceCommand); err != nil {
		t.Fatalf("RecordStateChange() error: %v", err)
	}

	entries, err := repo.GetHistory(ctx, "lamp", 10)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}

	entry := entries[0]
	if entry.Bulb != "lamp" || entry.Source != HistorySourceCommand {
		t.Errorf("entry = %+v, want lamp/command", entry)
	}
	if entry.State.Red != 255 || entry.State.Green != 128 || !entry.State.PowerOn {
		t.Errorf("state snapshot not round-tripped: %+v", entry.State)
	}
	if entry.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestHistoryOrderedNewestFirst(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	for i, source := range []string{HistorySourceCommand, HistorySourcePoller, HistorySourceRefresh} {
		state := State{Name: "lamp", Red: uint8(i)}
		if err := repo.RecordStateChange(ctx, "lamp", state, source); err != nil {
			t.Fatalf("RecordStateChange() error: %v", err)
		}
	}

	entries, err := repo.GetHistory(ctx, "lamp", 10)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Source != HistorySourceRefresh {
		t.Errorf("newest entry source = %s, want refresh", entries[0].Source)
	}
}

func TestHistoryLimitClamped(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.RecordStateChange(ctx, "lamp", State{Name: "lamp"}, HistorySourcePoller); err != nil {
			t.Fatalf("RecordStateChange() error: %v", err)
		}
	}

	entries, err := repo.GetHistory(ctx, "lamp", 2)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}

	// Zero limit falls back to the default.
	entries, err = repo.GetHistory(ctx, "lamp", 0)
	if err != nil {
		t.Fatalf("GetHistory() error: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("got %d entries, want 5", len(entries))
	}
}

func TestHistoryPrune(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	if _, err := db.Exec(
		"INSERT INTO state_history (bulb, state, source, created_at) VALUES (?, ?, ?, ?)",
		"lamp", "{}", HistorySourcePoller, old,
	); err != nil {
		t.Fatalf("insert error: %v", err)
	}
	if err := repo.RecordStateChange(ctx, "lamp", State{Name: "lamp"}, HistorySourcePoller); err != nil {
		t.Fatalf("RecordStateChange() error: %v", err)
	}

	deleted, err := repo.PruneHistory(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneHistory() error: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	entries, _ := repo.GetHistory(ctx, "lamp", 10)
	if len(entries) != 1 {
		t.Errorf("got %d entries after prune, want 1", len(entries))
	}
}

func TestHistoryRequiresBulbName(t *testing.T) {
	db := setupHistoryTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	if err := repo.RecordStateChange(ctx, "", State{}, HistorySourceCommand); err == nil {
		t.Error("expected error for empty bulb name")
	}
	if _, err := repo.GetHistory(ctx, "", 10); err == nil {
		t.Error("expected error for empty bulb name")
	}
}
