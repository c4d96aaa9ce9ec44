package vault

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFS_WriteReadExists(t *testing.T) {
	store := NewFS(t.TempDir())

	if err := store.MkdirAll("Feeds/News"); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := store.WriteFile("Feeds/News/a.md", "hello"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	exists, err := store.Exists("Feeds/News/a.md")
	if err != nil || !exists {
		t.Fatalf("Expected file to exist, got %v (%v)", exists, err)
	}

	content, err := store.ReadFile("Feeds/News/a.md")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if content != "hello" {
		t.Errorf("Expected 'hello', got %q", content)
	}

	exists, err = store.Exists("Feeds/News/missing.md")
	if err != nil || exists {
		t.Errorf("Expected missing file, got %v (%v)", exists, err)
	}
}

func TestFS_List(t *testing.T) {
	store := NewFS(t.TempDir())

	for _, p := range []string{"Feeds/b.md", "Feeds/sub/a.md", "Other/c.md"} {
		if err := store.MkdirAll(filepath.Dir(p)); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := store.WriteFile(p, "x"); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	files, err := store.List("Feeds")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	expected := []string{"Feeds/b.md", "Feeds/sub/a.md"}
	if !reflect.DeepEqual(files, expected) {
		t.Errorf("Expected %v, got %v", expected, files)
	}

	files, err = store.List("Missing")
	if err != nil {
		t.Fatalf("Expected no error for missing folder, got: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("Expected no files, got %v", files)
	}
}

func TestFS_PathsStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewFS(filepath.Join(root, "vault"))

	if err := store.MkdirAll("."); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := store.WriteFile("../escape.md", "x"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "escape.md")); err == nil {
		t.Errorf("Expected write to stay inside the vault root")
	}
	if _, err := os.Stat(filepath.Join(root, "vault", "escape.md")); err != nil {
		t.Errorf("Expected file inside vault root: %v", err)
	}
}

func TestFS_RemoveAndStat(t *testing.T) {
	store := NewFS(t.TempDir())

	if err := store.WriteBinary("img.jpg", []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteBinary failed: %v", err)
	}

	info, err := store.Stat("img.jpg")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size != 3 {
		t.Errorf("Expected size 3, got %d", info.Size)
	}
	if info.ModTime.IsZero() || info.CreatedAt.IsZero() {
		t.Errorf("Expected timestamps, got %+v", info)
	}

	if err := store.Remove("img.jpg"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if exists, _ := store.Exists("img.jpg"); exists {
		t.Errorf("Expected file to be removed")
	}

	if err := store.RemoveAll(""); err == nil {
		t.Errorf("Expected removing the root to fail")
	}
}
