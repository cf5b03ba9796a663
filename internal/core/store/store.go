// Package store persists one JSON file per named session under the
// sessions directory, keeping a single .bak snapshot of the previous
// version alongside each primary file.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CVO-TreeAi/terminote/internal/core/logging"
	"github.com/CVO-TreeAi/terminote/internal/core/models"
)

// ErrNotFound means no primary or backup file exists for the name.
var ErrNotFound = errors.New("session not found")

// StorageError wraps file I/O and serialization failures with the
// operation and path that produced them.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, path string, err error) error {
	return &StorageError{Op: op, Path: path, Err: err}
}

const (
	primaryExt    = ".json"
	backupExt     = ".bak"
	quarantineExt = ".json.corrupt"
)

// Store reads and writes session files in a single directory. All
// operations touch only that directory; nothing here reaches the network.
type Store struct {
	dir string
	log *slog.Logger
}

// New creates the sessions directory if needed and returns a store over
// it. Failure to create the directory is the one unrecoverable startup
// error in the persistence layer.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storageErr("create directory", dir, err)
	}
	return &Store{dir: dir, log: logging.WithComponent("store")}, nil
}

// Dir returns the directory the store operates on
func (s *Store) Dir() string { return s.dir }

// SanitizeName maps characters that are unsafe in filenames to '_' and
// caps the result at models.MaxNameLength runes.
func SanitizeName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, name)
	runes := []rune(sanitized)
	if len(runes) > models.MaxNameLength {
		runes = runes[:models.MaxNameLength]
	}
	return string(runes)
}

// PrimaryPath returns the session file path for a name
func (s *Store) PrimaryPath(name string) string {
	return filepath.Join(s.dir, SanitizeName(name)+primaryExt)
}

// BackupPath returns the backup file path for a name
func (s *Store) BackupPath(name string) string {
	return filepath.Join(s.dir, SanitizeName(name)+backupExt)
}

// QuarantinePath returns where corrupt bytes are preserved for a name
func (s *Store) QuarantinePath(name string) string {
	return filepath.Join(s.dir, SanitizeName(name)+quarantineExt)
}

// Exists reports whether a primary file is present for the name
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.PrimaryPath(name))
	return err == nil
}

// Write persists the session. The new content lands in a temporary file
// first; the previous primary (if any) is renamed to the backup path;
// then the temporary file is renamed over the primary. A crash between
// the two renames leaves either the backup or the new primary intact,
// never a torn file. If the final rename fails the backup is renamed
// back so a failed save does not lose the prior version.
func (s *Store) Write(sess *models.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return storageErr("marshal session", sess.Name, err)
	}

	primary := s.PrimaryPath(sess.Name)
	backup := s.BackupPath(sess.Name)

	tmp, err := os.CreateTemp(s.dir, ".tmp-session-*")
	if err != nil {
		return storageErr("create temp file", s.dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return storageErr("write temp file", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return storageErr("close temp file", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return storageErr("chmod temp file", tmpPath, err)
	}

	backedUp := false
	if _, err := os.Stat(primary); err == nil {
		// At most one backup per session: drop the stale one first.
		if err := os.Remove(backup); err != nil && !errors.Is(err, fs.ErrNotExist) {
			os.Remove(tmpPath)
			return storageErr("remove stale backup", backup, err)
		}
		if err := os.Rename(primary, backup); err != nil {
			os.Remove(tmpPath)
			return storageErr("back up session", primary, err)
		}
		backedUp = true
	}

	if err := os.Rename(tmpPath, primary); err != nil {
		os.Remove(tmpPath)
		if backedUp {
			if restoreErr := os.Rename(backup, primary); restoreErr != nil {
				s.log.Error("backup restore failed", "name", sess.Name, "error", restoreErr)
			} else {
				s.log.Warn("save failed, previous version restored", "name", sess.Name)
			}
		}
		return storageErr("write session", primary, err)
	}

	s.log.Debug("session written", "name", sess.Name, "bytes", len(data))
	return nil
}

// Read loads a session by name. Recovery ladder:
//
//	healthy primary        -> session
//	corrupt primary        -> parseable backup, flagged RestoredFromBackup
//	                       -> else quarantine the bytes, return a fresh
//	                          empty session flagged Recovered
//	absent primary         -> parseable backup, flagged RestoredFromBackup
//	                       -> else ErrNotFound
//
// Callers can therefore always tell "never existed" from "existed but
// corrupt" and warn the user accordingly.
func (s *Store) Read(name string) (*models.Session, error) {
	primary := s.PrimaryPath(name)

	data, err := os.ReadFile(primary)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, storageErr("read session", primary, err)
		}
		if sess, ok := s.readBackup(name); ok {
			return sess, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err == nil {
		return &sess, nil
	}

	s.log.Warn("session file corrupt", "name", name, "path", primary)
	if sess, ok := s.readBackup(name); ok {
		return sess, nil
	}

	// Preserve the unparsable bytes; the caller decides what happens to
	// the recovered session, nothing is silently destroyed.
	quarantine := s.QuarantinePath(name)
	if err := os.Rename(primary, quarantine); err != nil {
		s.log.Error("quarantine failed", "name", name, "error", err)
	}

	recovered := models.NewSession(name)
	recovered.Recovered = true
	return recovered, nil
}

func (s *Store) readBackup(name string) (*models.Session, bool) {
	data, err := os.ReadFile(s.BackupPath(name))
	if err != nil {
		return nil, false
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, false
	}
	sess.RestoredFromBackup = true
	s.log.Warn("session restored from backup", "name", name)
	return &sess, true
}

// List returns the sorted names of currently persisted sessions. Backup
// and quarantine files never appear. The directory is re-read on every
// call.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, storageErr("list sessions", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fname := entry.Name()
		if !strings.HasSuffix(fname, primaryExt) || strings.HasSuffix(fname, quarantineExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(fname, primaryExt))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the primary, backup, and quarantine files for a name.
// Idempotent: deleting a session that does not exist is not an error.
func (s *Store) Delete(name string) error {
	for _, path := range []string{s.PrimaryPath(name), s.BackupPath(name), s.QuarantinePath(name)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return storageErr("delete session", path, err)
		}
	}
	s.log.Debug("session deleted", "name", name)
	return nil
}
