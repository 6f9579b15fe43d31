package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// ArchiveFileName is the SQLite database holding conversations dropped
// from the bounded history store.
const ArchiveFileName = "archive.db"

// ArchiveStore keeps conversations that aged out of, or were evicted
// from, the history store. The bounded store forgets; the archive does
// not.
type ArchiveStore struct {
	db *sql.DB
}

// OpenArchive opens (and if needed initializes) the archive database.
func OpenArchive(path string) (*ArchiveStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS conversations (
		id INTEGER PRIMARY KEY,
		created_at INTEGER NOT NULL,
		preview TEXT NOT NULL,
		messages TEXT NOT NULL
	)`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive: %w", err)
	}

	return &ArchiveStore{db: db}, nil
}

// Close closes the underlying database.
func (a *ArchiveStore) Close() error {
	return a.db.Close()
}

// Archive stores dropped entries. Re-archiving an id overwrites the
// previous snapshot, so retries are harmless.
func (a *ArchiveStore) Archive(entries []HistoryEntry) error {
	for _, e := range entries {
		messages, err := json.Marshal(e.Messages)
		if err != nil {
			return fmt.Errorf("failed to encode conversation %d: %w", e.ID, err)
		}
		_, err = a.db.Exec(
			"INSERT OR REPLACE INTO conversations (id, created_at, preview, messages) VALUES (?, ?, ?, ?)",
			e.ID, e.CreatedAt, e.Preview, string(messages),
		)
		if err != nil {
			return fmt.Errorf("failed to archive conversation %d: %w", e.ID, err)
		}
	}
	return nil
}

// List returns archived conversations, newest first, without their
// message bodies.
func (a *ArchiveStore) List() ([]HistoryEntry, error) {
	rows, err := a.db.Query(
		"SELECT id, created_at, preview FROM conversations ORDER BY created_at DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.Preview); err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive rows iteration error: %w", err)
	}
	return entries, nil
}

// Get returns a full archived conversation by id.
func (a *ArchiveStore) Get(id int64) (*HistoryEntry, error) {
	var e HistoryEntry
	var messages string
	err := a.db.QueryRow(
		"SELECT id, created_at, preview, messages FROM conversations WHERE id = ?",
		id,
	).Scan(&e.ID, &e.CreatedAt, &e.Preview, &messages)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("conversation %d not found in archive", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archived conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(messages), &e.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode archived conversation %d: %w", id, err)
	}
	return &e, nil
}
