package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CVO-TreeAi/terminote/internal/core/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	sess := models.NewSession("draft1")
	sess.Content = "Hello world"
	sess.RecountWords()
	sess.Metadata.Tags = []string{"novel"}
	if err := s.Write(sess); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := s.Read("draft1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Name != "draft1" {
		t.Errorf("Name = %q, want draft1", got.Name)
	}
	if got.Content != "Hello world" {
		t.Errorf("Content = %q", got.Content)
	}
	if got.WordCount != 2 {
		t.Errorf("WordCount = %d, want 2", got.WordCount)
	}
	if !got.Created.Equal(sess.Created) {
		t.Errorf("Created = %v, want %v", got.Created, sess.Created)
	}
	if got.Recovered || got.RestoredFromBackup {
		t.Error("healthy read must not set recovery flags")
	}
}

func TestWriteCreatesBackupOfPriorVersion(t *testing.T) {
	s := newTestStore(t)

	sess := models.NewSession("draft1")
	sess.Content = "version one"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}
	firstBytes, err := os.ReadFile(s.PrimaryPath("draft1"))
	if err != nil {
		t.Fatal(err)
	}

	sess.Content = "version two"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}

	backupBytes, err := os.ReadFile(s.BackupPath("draft1"))
	if err != nil {
		t.Fatalf("backup missing after overwrite: %v", err)
	}
	if string(backupBytes) != string(firstBytes) {
		t.Error("backup is not a byte-identical snapshot of the prior version")
	}

	var fromBackup models.Session
	if err := json.Unmarshal(backupBytes, &fromBackup); err != nil {
		t.Fatalf("backup unparsable: %v", err)
	}
	if fromBackup.Content != "version one" {
		t.Errorf("backup Content = %q, want prior version", fromBackup.Content)
	}
}

func TestWriteKeepsSingleBackup(t *testing.T) {
	s := newTestStore(t)

	sess := models.NewSession("draft1")
	for _, content := range []string{"one", "two", "three"} {
		sess.Content = content
		if err := s.Write(sess); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(s.Dir())
	if err != nil {
		t.Fatal(err)
	}
	backups := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".bak" {
			backups++
		}
	}
	if backups != 1 {
		t.Errorf("backup file count = %d, want 1", backups)
	}

	var fromBackup models.Session
	data, err := os.ReadFile(s.BackupPath("draft1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &fromBackup); err != nil {
		t.Fatal(err)
	}
	if fromBackup.Content != "two" {
		t.Errorf("backup Content = %q, want %q", fromBackup.Content, "two")
	}
}

func TestReadMissingSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Read("never-created")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
}

func TestReadCorruptFileRecoversEmpty(t *testing.T) {
	s := newTestStore(t)

	sess := models.NewSession("draft1")
	sess.Content = "Hello world"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}
	// Truncate mid-document so the JSON no longer parses. No backup
	// exists yet because the session was only written once.
	if err := os.WriteFile(s.PrimaryPath("draft1"), []byte(`{"name": "dra`), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read("draft1")
	if err != nil {
		t.Fatalf("Read() on corrupt file must not error, got %v", err)
	}
	if !got.Recovered {
		t.Error("recovered session must carry the Recovered flag")
	}
	if got.Content != "" {
		t.Errorf("recovered session Content = %q, want empty", got.Content)
	}
	if got.Name != "draft1" {
		t.Errorf("recovered session Name = %q", got.Name)
	}

	if _, err := os.Stat(s.QuarantinePath("draft1")); err != nil {
		t.Errorf("corrupt bytes not quarantined: %v", err)
	}
	if _, err := os.Stat(s.PrimaryPath("draft1")); !errors.Is(err, os.ErrNotExist) {
		t.Error("corrupt primary should have been moved aside")
	}
}

func TestReadCorruptFileFallsBackToBackup(t *testing.T) {
	s := newTestStore(t)

	sess := models.NewSession("draft1")
	sess.Content = "version one"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}
	sess.Content = "version two"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(s.PrimaryPath("draft1"), []byte("not json at all"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read("draft1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.RestoredFromBackup {
		t.Error("session should be flagged RestoredFromBackup")
	}
	if got.Content != "version one" {
		t.Errorf("Content = %q, want backup version", got.Content)
	}
}

func TestReadAbsentPrimaryFallsBackToBackup(t *testing.T) {
	s := newTestStore(t)

	sess := models.NewSession("draft1")
	sess.Content = "version one"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}
	sess.Content = "version two"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(s.PrimaryPath("draft1")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Read("draft1")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.RestoredFromBackup || got.Content != "version one" {
		t.Errorf("got Content=%q RestoredFromBackup=%v", got.Content, got.RestoredFromBackup)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)

	sess := models.NewSession("draft1")
	sess.Content = "one"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}
	sess.Content = "two"
	if err := s.Write(sess); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete("draft1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(s.PrimaryPath("draft1")); !errors.Is(err, os.ErrNotExist) {
		t.Error("primary still present after delete")
	}
	if _, err := os.Stat(s.BackupPath("draft1")); !errors.Is(err, os.ErrNotExist) {
		t.Error("backup still present after delete")
	}

	if err := s.Delete("draft1"); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
	if err := s.Delete("never-existed"); err != nil {
		t.Errorf("Delete() on unknown name error = %v, want nil", err)
	}
}

func TestListExcludesBackupsAndQuarantine(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"beta", "alpha"} {
		sess := models.NewSession(name)
		sess.Content = "one"
		if err := s.Write(sess); err != nil {
			t.Fatal(err)
		}
		sess.Content = "two" // force a backup
		if err := s.Write(sess); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(s.Dir(), "junk.json.corrupt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"alpha", "beta"}
	if len(names) != len(want) {
		t.Fatalf("List() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestWriteUnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	sess := models.NewSession("draft1")
	err = s.Write(sess)
	if err == nil {
		t.Fatal("Write() into read-only directory should fail")
	}
	var se *StorageError
	if !errors.As(err, &se) {
		t.Errorf("error type = %T, want *StorageError", err)
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "draft1", "draft1"},
		{"path separators", `a/b\c`, "a_b_c"},
		{"windows reserved", `no:te"s?`, "no_te_s_"},
		{"spaces kept", "my novel", "my novel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := make([]rune, 0, 150)
	for i := 0; i < 150; i++ {
		long = append(long, 'x')
	}
	if got := SanitizeName(string(long)); len([]rune(got)) != models.MaxNameLength {
		t.Errorf("SanitizeName long input length = %d, want %d", len([]rune(got)), models.MaxNameLength)
	}
}
