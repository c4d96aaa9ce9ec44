package saver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/lysyi3m/feed-vault/app/vault"
)

// LedgerPruneAfter is how long a deleted entry stays in the ledger.
const LedgerPruneAfter = 90 * 24 * time.Hour

type LedgerEntry struct {
	SavedAt   int64 `json:"savedAt"`
	Deleted   bool  `json:"deleted"`
	DeletedAt int64 `json:"deletedAt,omitempty"`
}

// Ledger records every link ever saved into one folder, independent of
// whether the note file still exists.
type Ledger struct {
	path    string
	entries map[string]LedgerEntry
	dirty   bool
}

// LoadLedger reads the ledger of folder. A missing or unreadable ledger
// starts empty.
func LoadLedger(store vault.Storage, folder string) *Ledger {
	l := &Ledger{
		path:    path.Join(folder, LedgerFile),
		entries: make(map[string]LedgerEntry),
	}

	exists, err := store.Exists(l.path)
	if err != nil || !exists {
		return l
	}

	data, err := store.ReadFile(l.path)
	if err != nil {
		slog.Warn("Ledger unreadable, starting empty", "path", l.path, "error", err)
		return l
	}
	if err := json.Unmarshal([]byte(data), &l.entries); err != nil {
		slog.Warn("Ledger corrupt, starting empty", "path", l.path, "error", err)
		l.entries = make(map[string]LedgerEntry)
	}
	if l.entries == nil {
		l.entries = make(map[string]LedgerEntry)
	}
	return l
}

func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) Entry(link string) (LedgerEntry, bool) {
	e, ok := l.entries[link]
	return e, ok
}

func (l *Ledger) IsDeleted(link string) bool {
	return l.entries[link].Deleted
}

func (l *Ledger) MarkSaved(link string, at time.Time) {
	l.entries[link] = LedgerEntry{SavedAt: at.UnixMilli()}
	l.dirty = true
}

// MarkDeleted flags link as deleted, creating the entry when needed.
func (l *Ledger) MarkDeleted(link string, at time.Time) {
	e := l.entries[link]
	e.Deleted = true
	e.DeletedAt = at.UnixMilli()
	l.entries[link] = e
	l.dirty = true
}

func (l *Ledger) Dirty() bool {
	return l.dirty
}

// Flush prunes old deletions and writes the ledger if it changed.
func (l *Ledger) Flush(store vault.Storage, now time.Time) error {
	if !l.dirty {
		return nil
	}

	cutoff := now.Add(-LedgerPruneAfter).UnixMilli()
	for link, e := range l.entries {
		if e.Deleted && e.DeletedAt > 0 && e.DeletedAt < cutoff {
			delete(l.entries, link)
		}
	}

	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	if err := store.MkdirAll(path.Dir(l.path)); err != nil {
		return err
	}
	if err := store.WriteFile(l.path, string(data)); err != nil {
		return fmt.Errorf("failed to write ledger: %w", err)
	}

	l.dirty = false
	return nil
}
