package internal

import (
	"path/filepath"
	"testing"

	"github.com/ragis-group/ragis-cli/testutil"
)

func newTestArchive(t *testing.T) *ArchiveStore {
	t.Helper()
	dir := testutil.CreateTempDir(t)
	archive, err := OpenArchive(filepath.Join(dir, ArchiveFileName))
	if err != nil {
		t.Fatalf("OpenArchive() error = %v", err)
	}
	t.Cleanup(func() { _ = archive.Close() })
	return archive
}

func TestArchive_RoundTrip(t *testing.T) {
	archive := newTestArchive(t)

	entry := testEntry(1, "vecchia chat")
	if err := archive.Archive([]HistoryEntry{entry}); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	got, err := archive.Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Preview != "vecchia chat" {
		t.Errorf("preview = %q", got.Preview)
	}
	if len(got.Messages) != 2 || got.Messages[0].Text != "vecchia chat" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestArchive_ListNewestFirst(t *testing.T) {
	archive := newTestArchive(t)

	older := testEntry(1, "prima")
	older.CreatedAt = 1000
	newer := testEntry(2, "seconda")
	newer.CreatedAt = 2000

	if err := archive.Archive([]HistoryEntry{older, newer}); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	entries, err := archive.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != 2 || entries[1].ID != 1 {
		t.Errorf("order = %d, %d, want newest first", entries[0].ID, entries[1].ID)
	}
	// List omits the message bodies.
	if entries[0].Messages != nil {
		t.Errorf("List() returned message bodies: %+v", entries[0].Messages)
	}
}

func TestArchive_ReArchiveOverwrites(t *testing.T) {
	archive := newTestArchive(t)

	entry := testEntry(1, "prima versione")
	if err := archive.Archive([]HistoryEntry{entry}); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	entry.Preview = "seconda versione"
	if err := archive.Archive([]HistoryEntry{entry}); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	entries, err := archive.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 after overwrite", len(entries))
	}
	if entries[0].Preview != "seconda versione" {
		t.Errorf("preview = %q", entries[0].Preview)
	}
}

func TestArchive_GetMissing(t *testing.T) {
	archive := newTestArchive(t)
	if _, err := archive.Get(404); err == nil {
		t.Error("Get() on missing id = nil error")
	}
}
