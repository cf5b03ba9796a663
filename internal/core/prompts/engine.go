// Package prompts holds the system-prompt templates for every AI
// operation. Defaults are compiled in; a user can override any of them
// by dropping a .md file with the same stem into ~/.terminote/prompts.
package prompts

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cbroglie/mustache"

	"github.com/CVO-TreeAi/terminote/internal/core/logging"
)

//go:embed templates/*.md
var defaultTemplates embed.FS

// Engine loads and renders named prompt templates
type Engine struct {
	userDir   string
	templates map[string]string
	log       *slog.Logger
}

// NewEngine loads the embedded defaults and overlays user overrides
// from userDir (missing dir is fine)
func NewEngine(userDir string) (*Engine, error) {
	e := &Engine{
		userDir: userDir,
		log:     logging.WithComponent("prompts"),
	}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload re-reads defaults and user overrides
func (e *Engine) Reload() error {
	templates := map[string]string{}

	entries, err := fs.ReadDir(defaultTemplates, "templates")
	if err != nil {
		return fmt.Errorf("read embedded templates: %w", err)
	}
	for _, entry := range entries {
		data, err := defaultTemplates.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read embedded template %s: %w", entry.Name(), err)
		}
		templates[stem(entry.Name())] = string(data)
	}

	if e.userDir != "" {
		userFiles, err := filepath.Glob(filepath.Join(e.userDir, "*.md"))
		if err == nil {
			for _, path := range userFiles {
				data, err := os.ReadFile(path)
				if err != nil {
					e.log.Warn("could not load user prompt", "path", path, "error", err)
					continue
				}
				templates[stem(filepath.Base(path))] = string(data)
			}
		}
	}

	e.templates = templates
	return nil
}

func stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// Get returns the raw template text
func (e *Engine) Get(name string) (string, bool) {
	t, ok := e.templates[name]
	return t, ok
}

// Render returns the named template with {{variables}} substituted.
// Unknown names fall back to a generic assistant prompt, matching the
// forgiving behavior users expect when they mistype an override file.
func (e *Engine) Render(name string, vars map[string]any) (string, error) {
	raw, ok := e.templates[name]
	if !ok {
		e.log.Warn("prompt not found, using generic fallback", "name", name)
		return fmt.Sprintf("You are a helpful AI assistant for %s tasks.", name), nil
	}
	if len(vars) == 0 {
		return strings.TrimSpace(raw), nil
	}
	rendered, err := mustache.Render(raw, vars)
	if err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return strings.TrimSpace(rendered), nil
}

// List returns the available template names, sorted
func (e *Engine) List() []string {
	names := make([]string, 0, len(e.templates))
	for name := range e.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
