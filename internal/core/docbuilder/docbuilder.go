// Package docbuilder turns a scan of a project tree plus one model
// call into a documentation file: README, technical spec, API
// reference, or user guide.
package docbuilder

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/CVO-TreeAi/terminote/internal/core/logging"
	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/core/prompts"
)

// Generator is the slice of the AI client the builder needs
type Generator interface {
	Stream(ctx context.Context, task string, messages []models.ChatMessage, onChunk func(string)) (string, error)
}

// Kind selects which document to generate
type Kind string

const (
	KindReadme  Kind = "readme"
	KindSpec    Kind = "spec"
	KindAPIDocs Kind = "api-docs"
	KindGuide   Kind = "guide"
)

// Kinds lists the accepted document types in display order
func Kinds() []string {
	return []string{string(KindReadme), string(KindSpec), string(KindAPIDocs), string(KindGuide)}
}

// ParseKind validates a user-supplied document type
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindReadme:
		return KindReadme, nil
	case KindSpec:
		return KindSpec, nil
	case KindAPIDocs:
		return KindAPIDocs, nil
	case KindGuide:
		return KindGuide, nil
	}
	return "", fmt.Errorf("unknown document type %q (expected readme, spec, api-docs, or guide)", s)
}

func (k Kind) template() string {
	switch k {
	case KindSpec:
		return "doc_spec"
	case KindAPIDocs:
		return "doc_api"
	case KindGuide:
		return "doc_guide"
	}
	return "doc_readme"
}

// DefaultFileName is where the document lands when no output path is given
func (k Kind) DefaultFileName() string {
	switch k {
	case KindSpec:
		return "SPEC.md"
	case KindAPIDocs:
		return "API.md"
	case KindGuide:
		return "GUIDE.md"
	}
	return "README.md"
}

func (k Kind) describe() string {
	switch k {
	case KindSpec:
		return "technical specification"
	case KindAPIDocs:
		return "API reference documentation"
	case KindGuide:
		return "user guide"
	}
	return "README"
}

// Scanning is bounded so a generate run inside a huge tree stays fast.
const (
	maxScanEntries = 2000
	maxTreeEntries = 40
	maxLanguages   = 5
)

var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".venv":        true,
}

var languageByExt = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".rs":    "Rust",
	".rb":    "Ruby",
	".java":  "Java",
	".kt":    "Kotlin",
	".swift": "Swift",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".sh":    "Shell",
	".md":    "Markdown",
	".yaml":  "YAML",
	".yml":   "YAML",
	".sql":   "SQL",
}

var manifestNames = map[string]bool{
	"go.mod":             true,
	"package.json":       true,
	"pyproject.toml":     true,
	"requirements.txt":   true,
	"Cargo.toml":         true,
	"Gemfile":            true,
	"pom.xml":            true,
	"Makefile":           true,
	"Dockerfile":         true,
	"docker-compose.yml": true,
}

// ProjectFacts is what the scanner learned about a project tree
type ProjectFacts struct {
	Name      string
	Root      string
	Languages []string
	Manifests []string
	Files     int
	Tree      []string
}

// Scan walks a project tree and collects the facts the model needs.
// Hidden and dependency directories are skipped; the walk stops after
// a bounded number of entries.
func Scan(root string) (*ProjectFacts, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", root)
	}

	facts := &ProjectFacts{
		Name: filepath.Base(abs),
		Root: abs,
	}
	extCount := map[string]int{}
	seen := 0

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != abs && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		seen++
		if seen > maxScanEntries {
			return filepath.SkipAll
		}
		facts.Files++
		if manifestNames[name] {
			facts.Manifests = append(facts.Manifests, name)
		}
		if lang, ok := languageByExt[filepath.Ext(name)]; ok {
			extCount[lang]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	facts.Languages = topLanguages(extCount)
	sort.Strings(facts.Manifests)
	facts.Tree = topLevel(abs)
	return facts, nil
}

func topLanguages(counts map[string]int) []string {
	langs := make([]string, 0, len(counts))
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool {
		if counts[langs[i]] != counts[langs[j]] {
			return counts[langs[i]] > counts[langs[j]]
		}
		return langs[i] < langs[j]
	})
	if len(langs) > maxLanguages {
		langs = langs[:maxLanguages]
	}
	return langs
}

func topLevel(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if skipDirs[name] || strings.HasPrefix(name, ".") {
			continue
		}
		if e.IsDir() {
			name += "/"
		}
		out = append(out, name)
		if len(out) == maxTreeEntries {
			break
		}
	}
	return out
}

// Summary renders the facts as the user half of the generation prompt
func (f *ProjectFacts) Summary(kind Kind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", f.Name)
	if len(f.Languages) > 0 {
		fmt.Fprintf(&b, "Languages: %s\n", strings.Join(f.Languages, ", "))
	}
	if len(f.Manifests) > 0 {
		fmt.Fprintf(&b, "Build/manifest files: %s\n", strings.Join(f.Manifests, ", "))
	}
	fmt.Fprintf(&b, "Files: %d\n", f.Files)
	if len(f.Tree) > 0 {
		b.WriteString("\nTop-level layout:\n")
		for _, entry := range f.Tree {
			fmt.Fprintf(&b, "  %s\n", entry)
		}
	}
	fmt.Fprintf(&b, "\nGenerate the %s for this project.", kind.describe())
	return b.String()
}

// Builder generates documents through a prompt template and a model call
type Builder struct {
	gen     Generator
	prompts *prompts.Engine
	log     *slog.Logger
}

// NewBuilder wires a builder to a generator and the prompt engine
func NewBuilder(gen Generator, engine *prompts.Engine) *Builder {
	return &Builder{gen: gen, prompts: engine, log: logging.WithComponent("docbuilder")}
}

// Generate scans root and streams the requested document. Chunks are
// forwarded to onChunk as they arrive; the full markdown is returned.
func (b *Builder) Generate(ctx context.Context, kind Kind, root string, onChunk func(string)) (string, error) {
	facts, err := Scan(root)
	if err != nil {
		return "", err
	}
	b.log.Info("generating document", "kind", string(kind), "project", facts.Name, "files", facts.Files)

	system, err := b.prompts.Render(kind.template(), nil)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Text: system},
		{Role: models.RoleUser, Text: facts.Summary(kind)},
	}
	out, err := b.gen.Stream(ctx, "writing", messages, onChunk)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", kind.describe(), err)
	}
	return out, nil
}

// WriteFile persists a generated document, creating parent directories
func WriteFile(path, content string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
