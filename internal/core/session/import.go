package session

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/core/store"
)

// importSizeLimit keeps a stray binary or log dump from becoming a
// session.
const importSizeLimit = 10 << 20

// ImportFile creates a session from an existing text or markdown file.
// The session name comes from the name argument, else the file's
// leading markdown heading, else the filename. Timestamps follow the
// file's modification time.
func (m *Manager) ImportFile(path, name string) (*models.Session, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	if info.Size() > importSizeLimit {
		return nil, fmt.Errorf("import %s: file too large (%d bytes)", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	if bytes.ContainsRune(data, 0) {
		return nil, fmt.Errorf("import %s: not a text file", path)
	}
	content := strings.TrimRight(string(data), "\n")

	if name == "" {
		name = leadingHeading(content)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	name = store.SanitizeName(strings.TrimSpace(name))
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if m.store.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	sess := models.NewSession(name)
	sess.Created = info.ModTime()
	sess.LastModified = info.ModTime()
	sess.Content = content
	sess.RecountWords()

	if err := m.store.Write(sess); err != nil {
		return nil, err
	}
	m.log.Info("file imported as session", "path", path, "name", name, "words", sess.WordCount)
	return sess, nil
}

// leadingHeading returns the markdown H1 when the document starts with
// one
func leadingHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
		break
	}
	return ""
}
