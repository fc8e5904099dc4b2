package store

import (
	"database/sql"
	"fmt"
	"time"
)

// HistoryEntry is one finished download.
type HistoryEntry struct {
	ID           int64
	JobID        string
	Title        string
	Artist       string
	Album        string
	Service      string
	FilePath     string
	FileSize     int64
	DownloadedAt time.Time
}

// History records finished downloads in sqlite.
type History struct {
	db *sql.DB
}

// NewHistory creates a history store over an initialized database.
func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

// Add inserts a finished download.
func (h *History) Add(entry *HistoryEntry) error {
	result, err := h.db.Exec(`
		INSERT INTO download_history (job_id, title, artist, album, service, file_path, file_size)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID, entry.Title, entry.Artist, entry.Album, entry.Service, entry.FilePath, entry.FileSize,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	entry.ID, _ = result.LastInsertId()
	return nil
}

// List returns the most recent entries, newest first.
func (h *History) List(limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := h.db.Query(`
		SELECT id, job_id, title, artist, album, service, file_path, file_size, downloaded_at
		FROM download_history
		ORDER BY downloaded_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		entry := &HistoryEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.JobID, &entry.Title, &entry.Artist, &entry.Album,
			&entry.Service, &entry.FilePath, &entry.FileSize, &entry.DownloadedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Count returns the total number of history entries.
func (h *History) Count() (int, error) {
	var count int
	if err := h.db.QueryRow("SELECT COUNT(*) FROM download_history").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count history: %w", err)
	}
	return count, nil
}
