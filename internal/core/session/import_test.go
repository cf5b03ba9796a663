package session

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeImportFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestImportFile(t *testing.T) {
	m := newTestManager(t)
	path := writeImportFile(t, "field notes.md", "First line of notes.\n\nSecond paragraph.\n")

	sess, err := m.ImportFile(path, "")
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if sess.Name != "field notes" {
		t.Errorf("Name = %q, want field notes", sess.Name)
	}
	if sess.Content != "First line of notes.\n\nSecond paragraph." {
		t.Errorf("Content = %q", sess.Content)
	}
	if sess.WordCount != 6 {
		t.Errorf("WordCount = %d, want 6", sess.WordCount)
	}
	if !m.Exists("field notes") {
		t.Error("imported session should be persisted")
	}
}

func TestImportFileUsesHeading(t *testing.T) {
	m := newTestManager(t)
	path := writeImportFile(t, "untitled.md", "\n# Trip Report\n\nWe left at dawn.\n")

	sess, err := m.ImportFile(path, "")
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if sess.Name != "Trip Report" {
		t.Errorf("Name = %q, want Trip Report", sess.Name)
	}
}

func TestImportFileExplicitNameWins(t *testing.T) {
	m := newTestManager(t)
	path := writeImportFile(t, "untitled.md", "# Trip Report\n\nbody\n")

	sess, err := m.ImportFile(path, "chapter-3")
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if sess.Name != "chapter-3" {
		t.Errorf("Name = %q, want chapter-3", sess.Name)
	}
}

func TestImportFileKeepsTimestamps(t *testing.T) {
	m := newTestManager(t)
	path := writeImportFile(t, "old.txt", "written long ago\n")
	stamp := time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	sess, err := m.ImportFile(path, "")
	if err != nil {
		t.Fatalf("ImportFile() error = %v", err)
	}
	if !sess.Created.Equal(stamp) {
		t.Errorf("Created = %v, want %v", sess.Created, stamp)
	}
	if !sess.LastModified.Equal(stamp) {
		t.Errorf("LastModified = %v, want %v", sess.LastModified, stamp)
	}
}

func TestImportFileCollision(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.Create("notes"); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	path := writeImportFile(t, "notes.md", "more notes\n")

	if _, err := m.ImportFile(path, ""); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("ImportFile() error = %v, want ErrAlreadyExists", err)
	}
}

func TestImportFileRejectsBinary(t *testing.T) {
	m := newTestManager(t)
	path := writeImportFile(t, "blob.bin", "PK\x00\x03binary")

	_, err := m.ImportFile(path, "")
	if err == nil || !strings.Contains(err.Error(), "not a text file") {
		t.Errorf("ImportFile() error = %v, want not a text file", err)
	}
}

func TestImportFileMissing(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.ImportFile(filepath.Join(t.TempDir(), "gone.md"), ""); err == nil {
		t.Error("ImportFile() on a missing file should fail")
	}
}
