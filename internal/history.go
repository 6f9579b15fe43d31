package internal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	// HistoryFileName is the single storage key for the saved
	// conversation list, JSON-encoded.
	HistoryFileName = "history.json"

	maxEntries  = 20
	maxEntryAge = 48 * time.Hour
)

// Archiver receives entries dropped from the bounded store (capacity
// eviction or age expiry) before they disappear.
type Archiver interface {
	Archive(entries []HistoryEntry) error
}

// Store owns the bounded, time-windowed collection of saved
// conversations. The collection itself is a plain slice held by the
// caller; the store handles persistence, expiry and eviction.
type Store struct {
	path     string
	archiver Archiver
	now      func() time.Time
}

// NewStore creates a store persisting to the given file path.
func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// SetArchiver installs an optional archive sink for dropped entries.
func (s *Store) SetArchiver(a Archiver) {
	s.archiver = a
}

// Load reads the persisted collection. A missing or malformed file is
// treated as empty, never as an error. Entries older than the age bound
// are purged, and when anything was purged the filtered set is written
// back so the store self-heals on load.
func (s *Store) Load() []HistoryEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			LogWarn("Failed to read history: %v", err)
		}
		return nil
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		LogWarn("Malformed history discarded: %v", err)
		return nil
	}

	kept, purged := s.filterExpired(entries)
	if len(purged) > 0 {
		s.archive(purged)
		if err := s.Save(kept); err != nil {
			LogWarn("Failed to persist expiry sweep: %v", err)
		}
	}
	return kept
}

// Save writes the collection back to durable storage synchronously.
func (s *Store) Save(entries []HistoryEntry) error {
	if entries == nil {
		entries = []HistoryEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return &StorageError{Path: s.path, Op: "encode", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return &StorageError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// Upsert replaces the entry with a matching id in place, or prepends a
// new one, then truncates to capacity. Entries pushed out go to the
// archiver. The caller persists the returned collection.
func (s *Store) Upsert(entries []HistoryEntry, entry HistoryEntry) []HistoryEntry {
	for i := range entries {
		if entries[i].ID == entry.ID {
			updated := make([]HistoryEntry, len(entries))
			copy(updated, entries)
			updated[i] = entry
			return updated
		}
	}

	updated := make([]HistoryEntry, 0, len(entries)+1)
	updated = append(updated, entry)
	updated = append(updated, entries...)

	if len(updated) > maxEntries {
		s.archive(updated[maxEntries:])
		updated = updated[:maxEntries]
	}
	return updated
}

// Remove filters out the entry with the given id. A miss is a no-op.
func (s *Store) Remove(entries []HistoryEntry, id int64) []HistoryEntry {
	kept := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	return kept
}

func (s *Store) filterExpired(entries []HistoryEntry) (kept, purged []HistoryEntry) {
	cutoff := s.now().Add(-maxEntryAge).UnixMilli()
	for _, e := range entries {
		if e.CreatedAt >= cutoff {
			kept = append(kept, e)
		} else {
			purged = append(purged, e)
		}
	}
	return kept, purged
}

func (s *Store) archive(dropped []HistoryEntry) {
	if s.archiver == nil || len(dropped) == 0 {
		return
	}
	if err := s.archiver.Archive(dropped); err != nil {
		LogWarn("Failed to archive %d dropped entries: %v", len(dropped), err)
	}
}
