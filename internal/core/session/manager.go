// Package session exposes the create/load/save/list lifecycle of writing
// sessions to the rest of the application, delegating file I/O to the
// store.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/CVO-TreeAi/terminote/internal/core/logging"
	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/core/store"
)

var (
	// ErrAlreadyExists means a session with the requested name is persisted.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrInvalidName rejects empty names and names with path separators.
	ErrInvalidName = errors.New("invalid session name")
)

// Manager owns the in-memory side of session handling
type Manager struct {
	store *store.Store
	log   *slog.Logger
}

// NewManager returns a manager over the given store
func NewManager(st *store.Store) *Manager {
	return &Manager{store: st, log: logging.WithComponent("session")}
}

// Store exposes the underlying store for callers that need paths
func (m *Manager) Store() *store.Store { return m.store }

// ValidateName enforces the naming rules shared by every operation
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

// Create starts a new session and persists it immediately. An empty name
// gets a timestamped one; explicit names collide with ErrAlreadyExists.
func (m *Manager) Create(name string) (*models.Session, error) {
	if name == "" {
		name = models.GeneratedName(time.Now())
		for i := 1; m.store.Exists(name); i++ {
			name = fmt.Sprintf("%s_%d", models.GeneratedName(time.Now()), i)
		}
	} else {
		if err := ValidateName(name); err != nil {
			return nil, err
		}
		if m.store.Exists(name) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
	}

	sess := models.NewSession(name)
	if err := m.store.Write(sess); err != nil {
		return nil, err
	}
	m.log.Info("session created", "name", name)
	return sess, nil
}

// Load reads a session. Recovery flags from the store pass through so
// callers can warn before touching a recovered or backup-restored
// session. LastAccessed is refreshed in memory only; it reaches disk on
// the next save, keeping loads free of write side effects.
func (m *Manager) Load(name string) (*models.Session, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	sess, err := m.store.Read(name)
	if err != nil {
		return nil, err
	}
	if sess.Recovered {
		m.log.Warn("loaded session recovered as empty", "name", name)
	}
	sess.LastAccessed = time.Now()
	return sess, nil
}

// Save refreshes the modification timestamp, recomputes the word count
// from content, and persists. Saving the same content twice is safe.
func (m *Manager) Save(sess *models.Session) error {
	if err := ValidateName(sess.Name); err != nil {
		return err
	}
	sess.LastModified = time.Now()
	sess.RecountWords()
	if err := m.store.Write(sess); err != nil {
		return err
	}
	// The on-disk copy is healthy again.
	sess.Recovered = false
	sess.RestoredFromBackup = false
	return nil
}

// Exists reports whether a session with this name is persisted
func (m *Manager) Exists(name string) bool {
	return m.store.Exists(name)
}

// Rename moves a session to a new name, rewriting the file so the
// embedded name stays consistent with the filename
func (m *Manager) Rename(oldName, newName string) error {
	if err := ValidateName(oldName); err != nil {
		return err
	}
	if err := ValidateName(newName); err != nil {
		return err
	}
	if m.store.Exists(newName) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, newName)
	}

	sess, err := m.store.Read(oldName)
	if err != nil {
		return err
	}
	sess.Name = newName
	if err := m.store.Write(sess); err != nil {
		return err
	}
	if err := m.store.Delete(oldName); err != nil {
		return err
	}
	m.log.Info("session renamed", "from", oldName, "to", newName)
	return nil
}

// Delete removes a session and its backup. Idempotent.
func (m *Manager) Delete(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	return m.store.Delete(name)
}

// Duplicate copies a session's content and metadata under a new name
// with fresh timestamps
func (m *Manager) Duplicate(srcName, dstName string) (*models.Session, error) {
	if err := ValidateName(dstName); err != nil {
		return nil, err
	}
	if m.store.Exists(dstName) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, dstName)
	}

	src, err := m.store.Read(srcName)
	if err != nil {
		return nil, err
	}

	dst := models.NewSession(dstName)
	dst.Content = src.Content
	dst.Metadata = src.Metadata
	dst.ChatHistory = append([]models.ChatMessage(nil), src.ChatHistory...)
	dst.RecountWords()
	if err := m.store.Write(dst); err != nil {
		return nil, err
	}
	m.log.Info("session duplicated", "from", srcName, "to", dstName)
	return dst, nil
}

// Export writes a session as a markdown document and returns the path.
// An empty path defaults to <name>.md in the working directory.
func (m *Manager) Export(name, path string) (string, error) {
	sess, err := m.store.Read(name)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = store.SanitizeName(name) + ".md"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", sess.Name)
	fmt.Fprintf(&b, "*Created: %s*  \n", sess.Created.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "*Modified: %s*  \n", sess.LastModified.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "*Words: %d*\n", sess.WordCount)
	if len(sess.Metadata.Tags) > 0 {
		fmt.Fprintf(&b, "*Tags: %s*\n", strings.Join(sess.Metadata.Tags, ", "))
	}
	if sess.Metadata.Project != "" {
		fmt.Fprintf(&b, "*Project: %s*\n", sess.Metadata.Project)
	}
	b.WriteString("\n---\n\n")
	b.WriteString(sess.Content)
	b.WriteString("\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("export %s: %w", name, err)
	}
	m.log.Info("session exported", "name", name, "path", path)
	return path, nil
}

// List returns listing info for every persisted session, most recently
// modified first. Entries whose files no longer parse are skipped rather
// than recovered; listing stays free of side effects.
func (m *Manager) List() ([]models.SessionInfo, error) {
	names, err := m.store.List()
	if err != nil {
		return nil, err
	}

	infos := make([]models.SessionInfo, 0, len(names))
	for _, name := range names {
		sess, ok := m.peek(name)
		if !ok {
			continue
		}
		infos = append(infos, models.SessionInfo{
			Name:         sess.Name,
			Created:      sess.Created,
			LastModified: sess.LastModified,
			LastAccessed: sess.LastAccessed,
			WordCount:    sess.WordCount,
			Preview:      models.Preview(sess.Content, 60),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})
	return infos, nil
}

// peek parses a session file without engaging the recovery ladder
func (m *Manager) peek(name string) (*models.Session, bool) {
	data, err := os.ReadFile(m.store.PrimaryPath(name))
	if err != nil {
		m.log.Warn("skipping unreadable session", "name", name, "error", err)
		return nil, false
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		m.log.Warn("skipping corrupt session in listing", "name", name)
		return nil, false
	}
	if sess.Name == "" {
		sess.Name = name
	}
	return &sess, true
}
