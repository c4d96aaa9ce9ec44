package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/feed-vault/app/feed"
)

// PurgeAfter is how long a soft-deleted feed is kept before it is removed
// from the settings for good.
const PurgeAfter = 15 * 24 * time.Hour

// Store keeps the settings file in memory and writes it back on change.
type Store struct {
	path string

	mu   sync.RWMutex
	data Settings
}

func NewStore(path string) *Store {
	return &Store{path: path, data: Default()}
}

// Load reads the settings file over the defaults. A missing file yields
// the defaults.
func (s *Store) Load() error {
	loaded := Default()

	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read settings: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("failed to parse settings: %w", err)
		}
	}

	if err := validate(loaded); err != nil {
		return fmt.Errorf("invalid settings %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.data = loaded
	s.mu.Unlock()

	slog.Debug("Settings loaded", "path", s.path, "feeds", len(loaded.Feeds), "groups", len(loaded.Groups))
	return nil
}

func validate(st Settings) error {
	seen := make(map[string]bool, len(st.Feeds))
	for _, f := range st.Feeds {
		if f.URL == "" {
			continue
		}
		if seen[f.URL] {
			return fmt.Errorf("duplicate feed url %s", f.URL)
		}
		seen[f.URL] = true

		for _, filter := range f.Filters {
			if !feed.FilterFields[filter.Field] {
				return fmt.Errorf("feed %s: unknown filter field %q", f.Name, filter.Field)
			}
		}
	}

	switch st.Cleanup.DateField {
	case DateFieldPublished, DateFieldSaved:
	default:
		return fmt.Errorf("unknown cleanup date field %q", st.Cleanup.DateField)
	}
	return nil
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.data)
}

// Update applies fn to a copy of the settings and saves the result.
// Nothing changes when fn or the save fails.
func (s *Store) Update(fn func(*Settings) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := clone(s.data)
	if err := fn(&next); err != nil {
		return err
	}
	if err := validate(next); err != nil {
		return err
	}
	if err := s.save(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *Store) save(st Settings) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings folder: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// UpdateFeed applies fn to the feed with the given url.
func (s *Store) UpdateFeed(url string, fn func(*Feed)) error {
	return s.Update(func(st *Settings) error {
		i := slices.IndexFunc(st.Feeds, func(f Feed) bool { return f.URL == url })
		if i < 0 {
			return fmt.Errorf("feed %s not found", url)
		}
		fn(&st.Feeds[i])
		return nil
	})
}

// RemoveFeed drops a feed from the settings and returns it.
func (s *Store) RemoveFeed(url string) (Feed, error) {
	var removed Feed
	err := s.Update(func(st *Settings) error {
		i := slices.IndexFunc(st.Feeds, func(f Feed) bool { return f.URL == url })
		if i < 0 {
			return fmt.Errorf("feed %s not found", url)
		}
		removed = st.Feeds[i]
		st.Feeds = slices.Delete(st.Feeds, i, i+1)
		return nil
	})
	return removed, err
}

// PurgeDeleted removes feeds soft-deleted longer than PurgeAfter ago and
// returns them.
func (s *Store) PurgeDeleted(now time.Time) ([]Feed, error) {
	cutoff := now.Add(-PurgeAfter).UnixMilli()

	var purged []Feed
	err := s.Update(func(st *Settings) error {
		kept := st.Feeds[:0]
		for _, f := range st.Feeds {
			if f.Deleted && f.DeletedAt > 0 && f.DeletedAt < cutoff {
				purged = append(purged, f)
				continue
			}
			kept = append(kept, f)
		}
		if len(purged) == 0 {
			return errNoChange
		}
		st.Feeds = kept
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil, nil
	}
	return purged, err
}

var errNoChange = errors.New("no change")

func clone(st Settings) Settings {
	st.Groups = slices.Clone(st.Groups)
	st.Feeds = slices.Clone(st.Feeds)
	return st
}
