package store

import (
	"path/filepath"
	"testing"
)

func newTestHistory(t *testing.T) *History {
	t.Helper()

	db, err := InitDB(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewHistory(db)
}

func TestHistoryAddAndList(t *testing.T) {
	history := newTestHistory(t)

	entry := &HistoryEntry{
		JobID:    "job-1",
		Title:    "Test Song",
		Artist:   "Test Artist",
		Album:    "Test Album",
		Service:  "Spotify",
		FilePath: "/music/Test Artist - Test Song.mp3",
		FileSize: 8_500_000,
	}

	if err := history.Add(entry); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if entry.ID == 0 {
		t.Error("Expected entry ID to be set after insert")
	}

	entries, err := history.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(entries))
	}

	got := entries[0]
	if got.Title != "Test Song" {
		t.Errorf("Title = %q, want Test Song", got.Title)
	}
	if got.Service != "Spotify" {
		t.Errorf("Service = %q, want Spotify", got.Service)
	}
	if got.FileSize != 8_500_000 {
		t.Errorf("FileSize = %d", got.FileSize)
	}
	if got.DownloadedAt.IsZero() {
		t.Error("DownloadedAt should be populated")
	}
}

func TestHistoryListNewestFirst(t *testing.T) {
	history := newTestHistory(t)

	for _, title := range []string{"first", "second", "third"} {
		if err := history.Add(&HistoryEntry{JobID: title, Title: title, Service: "YouTube"}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	entries, err := history.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(entries))
	}
	if entries[0].Title != "third" {
		t.Errorf("First entry = %q, want third (newest first)", entries[0].Title)
	}
}

func TestHistoryListLimit(t *testing.T) {
	history := newTestHistory(t)

	for i := 0; i < 5; i++ {
		if err := history.Add(&HistoryEntry{JobID: "j", Title: "t", Service: "YouTube"}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	entries, err := history.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("List returned %d entries, want 2", len(entries))
	}
}

func TestHistoryCount(t *testing.T) {
	history := newTestHistory(t)

	count, err := history.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Count = %d, want 0", count)
	}

	history.Add(&HistoryEntry{JobID: "a", Title: "a", Service: "Bandcamp"})
	history.Add(&HistoryEntry{JobID: "b", Title: "b", Service: "Bandcamp"})

	count, err = history.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Count = %d, want 2", count)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("First InitDB failed: %v", err)
	}
	db.Close()

	db, err = InitDB(dbPath)
	if err != nil {
		t.Fatalf("Second InitDB failed: %v", err)
	}
	defer db.Close()

	version, err := getCurrentVersion(db)
	if err != nil {
		t.Fatalf("getCurrentVersion failed: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("Schema version = %d, want %d", version, len(migrations))
	}
}
