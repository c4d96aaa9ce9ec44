package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Storage is the file store the pipeline writes into. Paths are
// slash-separated and relative to the vault root.
type Storage interface {
	Exists(p string) (bool, error)
	MkdirAll(p string) error
	WriteFile(p string, content string) error
	WriteBinary(p string, data []byte) error
	ReadFile(p string) (string, error)
	List(prefix string) ([]string, error)
	Remove(p string) error
	RemoveAll(p string) error
	Stat(p string) (FileInfo, error)
}

type FileInfo struct {
	ModTime   time.Time
	CreatedAt time.Time
	Size      int64
}

// FS is a Storage backed by a directory on the local filesystem.
type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

func (s *FS) Root() string {
	return s.root
}

// resolve maps a vault path onto the root. Cleaning it as an absolute path
// drops any leading "..", so the result never leaves the root.
func (s *FS) resolve(p string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(p))
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *FS) Exists(p string) (bool, error) {
	full, err := s.resolve(p)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", p, err)
}

func (s *FS) MkdirAll(p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", p, err)
	}
	return nil
}

func (s *FS) WriteFile(p string, content string) error {
	return s.WriteBinary(p, []byte(content))
}

// WriteBinary writes through a temp file and rename so readers never see
// partial content.
func (s *FS) WriteBinary(p string, data []byte) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", p, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

func (s *FS) ReadFile(p string) (string, error) {
	full, err := s.resolve(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return string(data), nil
}

// List returns all files under prefix recursively, sorted. A missing
// prefix yields an empty list.
func (s *FS) List(prefix string) ([]string, error) {
	full, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(full, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == full {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	sort.Strings(files)
	return files, nil
}

func (s *FS) Remove(p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}

func (s *FS) RemoveAll(p string) error {
	full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if full == filepath.Clean(s.root) {
		return fmt.Errorf("refusing to remove vault root")
	}
	if err := os.RemoveAll(full); err != nil {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}

func (s *FS) Stat(p string) (FileInfo, error) {
	full, err := s.resolve(p)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return FileInfo{}, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	return FileInfo{
		ModTime:   info.ModTime(),
		CreatedAt: birthTime(full, info),
		Size:      info.Size(),
	}, nil
}
