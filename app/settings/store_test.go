package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}
	return path
}

func TestStore_LoadMissingFileUsesDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.yml"))

	if err := store.Load(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	st := store.Snapshot()
	if st.Root != "Feeds" || st.UpdateInterval != 60 {
		t.Errorf("Expected defaults, got root=%q interval=%d", st.Root, st.UpdateInterval)
	}
	if st.Templates.FileName != "{{title}}" {
		t.Errorf("Expected default file name template, got %q", st.Templates.FileName)
	}
}

func TestStore_LoadMergesOverDefaults(t *testing.T) {
	path := writeSettings(t, `
root: News
cleanup:
  value: 30
feeds:
  - name: Go Blog
    url: https://go.dev/blog/feed.atom
    enabled: true
`)
	store := NewStore(path)

	if err := store.Load(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	st := store.Snapshot()
	if st.Root != "News" {
		t.Errorf("Expected root 'News', got %q", st.Root)
	}
	if st.Cleanup.Value != 30 || st.Cleanup.Unit != "days" || st.Cleanup.DateField != DateFieldPublished {
		t.Errorf("Expected cleanup merged over defaults, got %+v", st.Cleanup)
	}
	if st.AttachmentFolder != "attachments" {
		t.Errorf("Expected default attachment folder, got %q", st.AttachmentFolder)
	}
	if len(st.Feeds) != 1 || st.Feeds[0].Name != "Go Blog" {
		t.Errorf("Expected one feed, got %+v", st.Feeds)
	}
}

func TestStore_LoadRejectsDuplicateURLs(t *testing.T) {
	path := writeSettings(t, `
feeds:
  - name: A
    url: https://example.com/feed
  - name: B
    url: https://example.com/feed
`)
	store := NewStore(path)

	err := store.Load()
	if err == nil || !strings.Contains(err.Error(), "duplicate feed url") {
		t.Errorf("Expected duplicate url error, got: %v", err)
	}
}

func TestStore_LoadRejectsUnknownFilterField(t *testing.T) {
	path := writeSettings(t, `
feeds:
  - name: A
    url: https://example.com/feed
    filters:
      - field: titel
        includes: [go]
`)

	err := NewStore(path).Load()
	if err == nil || !strings.Contains(err.Error(), `unknown filter field "titel"`) {
		t.Errorf("Expected unknown filter field error, got: %v", err)
	}

	valid := writeSettings(t, `
feeds:
  - name: A
    url: https://example.com/feed
    filters:
      - field: categories
        excludes: [sponsored]
`)
	if err := NewStore(valid).Load(); err != nil {
		t.Errorf("Expected known filter field to load, got: %v", err)
	}
}

func TestStore_LoadInvalidYAML(t *testing.T) {
	store := NewStore(writeSettings(t, "feeds: [unclosed"))

	if err := store.Load(); err == nil {
		t.Errorf("Expected parse error")
	}
}

func TestStore_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yml")
	store := NewStore(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err := store.Update(func(st *Settings) error {
		st.Feeds = append(st.Feeds, Feed{Name: "Feed", URL: "https://example.com/rss", Enabled: true})
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if err := store.UpdateFeed("https://example.com/rss", func(f *Feed) { f.LastUpdated = 42 }); err != nil {
		t.Fatalf("UpdateFeed failed: %v", err)
	}

	reloaded := NewStore(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	f, ok := reloaded.Snapshot().FindFeed("https://example.com/rss")
	if !ok || f.LastUpdated != 42 {
		t.Errorf("Expected persisted feed with last_updated 42, got %+v (%v)", f, ok)
	}
}

func TestStore_UpdateRollsBackOnDuplicate(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.yml"))
	store.Load()

	add := func(st *Settings) error {
		st.Feeds = append(st.Feeds, Feed{Name: "Feed", URL: "https://example.com/rss"})
		return nil
	}
	if err := store.Update(add); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Update(add); err == nil {
		t.Fatalf("Expected duplicate url error")
	}
	if n := len(store.Snapshot().Feeds); n != 1 {
		t.Errorf("Expected settings unchanged after failed update, got %d feeds", n)
	}
}

func TestStore_PurgeDeleted(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "settings.yml")
	store := NewStore(path)
	store.Load()

	store.Update(func(st *Settings) error {
		st.Feeds = []Feed{
			{Name: "old", URL: "https://example.com/old", Deleted: true, DeletedAt: now.Add(-16 * 24 * time.Hour).UnixMilli()},
			{Name: "recent", URL: "https://example.com/recent", Deleted: true, DeletedAt: now.Add(-14 * 24 * time.Hour).UnixMilli()},
			{Name: "live", URL: "https://example.com/live", Enabled: true},
		}
		return nil
	})

	purged, err := store.PurgeDeleted(now)
	if err != nil {
		t.Fatalf("PurgeDeleted failed: %v", err)
	}
	if len(purged) != 1 || purged[0].Name != "old" {
		t.Errorf("Expected only 'old' purged, got %+v", purged)
	}
	if n := len(store.Snapshot().Feeds); n != 2 {
		t.Errorf("Expected 2 remaining feeds, got %d", n)
	}

	purged, err = store.PurgeDeleted(now)
	if err != nil || len(purged) != 0 {
		t.Errorf("Expected nothing to purge, got %v (%v)", purged, err)
	}
}

func TestStore_RemoveFeed(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "settings.yml"))
	store.Load()
	store.Update(func(st *Settings) error {
		st.Feeds = []Feed{{Name: "a", URL: "https://example.com/a"}}
		return nil
	})

	removed, err := store.RemoveFeed("https://example.com/a")
	if err != nil || removed.Name != "a" {
		t.Fatalf("Expected feed 'a' removed, got %+v (%v)", removed, err)
	}
	if _, err := store.RemoveFeed("https://example.com/a"); err == nil {
		t.Errorf("Expected error removing unknown feed")
	}
}
