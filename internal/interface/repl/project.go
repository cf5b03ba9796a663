package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/docbuilder"
	"github.com/CVO-TreeAi/terminote/internal/core/llm"
	"github.com/CVO-TreeAi/terminote/internal/core/logging"
	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/core/session"
)

// reviewSizeLimit caps how much of a source file goes into one review
// request.
const reviewSizeLimit = 100 * 1024

// ProjectAssistant is the slice of the AI client project mode uses
type ProjectAssistant interface {
	Chat(ctx context.Context, sess *models.Session, userText string, onChunk func(string)) (string, error)
	DevelopProjectPlan(ctx context.Context, description string, onChunk func(string)) (string, error)
	ReviewCode(ctx context.Context, code, language string, onChunk func(string)) (string, error)
	ExplainConcept(ctx context.Context, concept, level string, onChunk func(string)) (string, error)
}

// ProjectMode is an interactive project session: conversational by
// default, with commands for planning, code review, and doc generation
type ProjectMode struct {
	mgr     *session.Manager
	ai      ProjectAssistant
	builder *docbuilder.Builder
	cfg     *config.Config
	tok     *llm.Tokenizer
	in      LineReader
	out     io.Writer
	log     *slog.Logger

	sess  *models.Session
	dirty bool
}

// NewProjectMode wires a project-mode loop for sess. ai and builder are
// nil when no API key is configured.
func NewProjectMode(mgr *session.Manager, ai ProjectAssistant, builder *docbuilder.Builder, cfg *config.Config, sess *models.Session, in LineReader, out io.Writer) *ProjectMode {
	return &ProjectMode{
		mgr:     mgr,
		ai:      ai,
		builder: builder,
		cfg:     cfg,
		tok:     llm.NewTokenizer(),
		in:      in,
		out:     out,
		log:     logging.WithComponent("project"),
		sess:    sess,
	}
}

// Run reads lines until /quit or EOF
func (p *ProjectMode) Run(ctx context.Context) error {
	fmt.Fprintf(p.out, "Project session: %s\n", p.sess.Name)
	fmt.Fprintln(p.out, "Talk through your project. /help lists commands.")
	fmt.Fprintln(p.out)

	for {
		line, err := p.in.ReadLine("> ")
		if errors.Is(err, ErrInterrupt) {
			fmt.Fprintln(p.out, "Use /quit to leave (your work will be saved).")
			continue
		}
		if errors.Is(err, io.EOF) {
			return p.finish()
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := p.dispatch(ctx, line)
			if err != nil {
				fmt.Fprintf(p.out, "Error: %v\n", err)
			}
			if quit {
				return p.finish()
			}
			continue
		}

		if err := p.chat(ctx, line); err != nil {
			fmt.Fprintf(p.out, "Error: %v\n", err)
		}
	}
}

func (p *ProjectMode) dispatch(ctx context.Context, line string) (bool, error) {
	cmd, rest := splitCommand(line)
	switch cmd {
	case "/quit", "/q", "/exit":
		return true, nil
	case "/help", "/h":
		p.printHelp()
	case "/save":
		if err := p.save(); err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "Saved %s\n", p.sess.Name)
	case "/plan":
		return false, p.plan(ctx, rest)
	case "/tasks":
		return false, p.tasks(ctx)
	case "/docs":
		return false, p.docs(ctx, rest)
	case "/code-review", "/review":
		return false, p.codeReview(ctx, rest)
	case "/explain":
		return false, p.explain(ctx, rest)
	default:
		fmt.Fprintf(p.out, "Unknown command %s. /help lists commands.\n", cmd)
	}
	return false, nil
}

func (p *ProjectMode) printHelp() {
	fmt.Fprintln(p.out, `Commands:
  /plan <description>       Develop a project plan
  /tasks                    Break the current plan into tasks
  /docs <type> [output]     Generate docs (readme, spec, api-docs, guide)
  /code-review <file>       Review a source file
  /explain <concept>        Explain a concept
  /save                     Save the session
  /quit                     Save and leave

Anything else is sent to the AI as conversation.`)
}

func (p *ProjectMode) save() error {
	if err := p.mgr.Save(p.sess); err != nil {
		return err
	}
	p.dirty = false
	return nil
}

func (p *ProjectMode) autoSave() {
	if !p.cfg.Preferences.AutoSave {
		return
	}
	if err := p.save(); err != nil {
		fmt.Fprintf(p.out, "Auto-save failed: %v\n", err)
	}
}

func (p *ProjectMode) finish() error {
	if p.dirty {
		if err := p.save(); err != nil {
			return fmt.Errorf("save on exit: %w", err)
		}
		fmt.Fprintf(p.out, "Saved %s.\n", p.sess.Name)
	}
	fmt.Fprintln(p.out, "Goodbye.")
	return nil
}

func (p *ProjectMode) requireAI() error {
	if p.ai == nil {
		return config.ErrMissingAPIKey
	}
	return nil
}

func (p *ProjectMode) stream(call func(onChunk func(string)) (string, error)) (string, error) {
	reply, err := call(func(chunk string) { fmt.Fprint(p.out, chunk) })
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	if p.cfg.UI.AutoFormat && looksLikeMarkdown(reply) {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, RenderMarkdown(reply, 80))
	}
	if p.cfg.UI.ShowTokenCount {
		fmt.Fprintf(p.out, "[~%d tokens]\n", p.tok.Count(reply))
	}
	return reply, nil
}

func (p *ProjectMode) chat(ctx context.Context, message string) error {
	if err := p.requireAI(); err != nil {
		return err
	}
	reply, err := p.stream(func(onChunk func(string)) (string, error) {
		return p.ai.Chat(ctx, p.sess, message, onChunk)
	})
	if err != nil {
		return err
	}
	p.sess.RecordExchange(message, reply)
	p.dirty = true
	p.autoSave()
	return nil
}

func (p *ProjectMode) plan(ctx context.Context, description string) error {
	if err := p.requireAI(); err != nil {
		return err
	}
	if description == "" {
		return errors.New("usage: /plan <project description>")
	}
	reply, err := p.stream(func(onChunk func(string)) (string, error) {
		return p.ai.DevelopProjectPlan(ctx, description, onChunk)
	})
	if err != nil {
		return err
	}
	if Confirm(p.in, p.out, "Save plan into the project document?", true) {
		p.sess.AppendParagraph(reply)
		p.dirty = true
		p.autoSave()
	}
	return nil
}

func (p *ProjectMode) tasks(ctx context.Context) error {
	if err := p.requireAI(); err != nil {
		return err
	}
	if strings.TrimSpace(p.sess.Content) == "" {
		return errors.New("no plan yet; run /plan first")
	}
	return p.chat(ctx, "Break the current plan into a prioritized task list with rough estimates.")
}

func (p *ProjectMode) docs(ctx context.Context, rest string) error {
	if p.builder == nil {
		return config.ErrMissingAPIKey
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return fmt.Errorf("usage: /docs <%s> [output]", strings.Join(docbuilder.Kinds(), "|"))
	}
	kind, err := docbuilder.ParseKind(fields[0])
	if err != nil {
		return err
	}
	output := kind.DefaultFileName()
	if len(fields) > 1 {
		output = fields[1]
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}
	content, err := p.builder.Generate(ctx, kind, cwd, func(chunk string) { fmt.Fprint(p.out, chunk) })
	fmt.Fprintln(p.out)
	if err != nil {
		return err
	}
	if err := docbuilder.WriteFile(output, content); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "Wrote %s\n", output)
	return nil
}

func (p *ProjectMode) codeReview(ctx context.Context, path string) error {
	if err := p.requireAI(); err != nil {
		return err
	}
	if path == "" {
		return errors.New("usage: /code-review <file>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > reviewSizeLimit {
		return fmt.Errorf("%s is too large to review (%d bytes)", path, len(data))
	}
	_, err = p.stream(func(onChunk func(string)) (string, error) {
		return p.ai.ReviewCode(ctx, string(data), languageFromExt(path), onChunk)
	})
	return err
}

func (p *ProjectMode) explain(ctx context.Context, rest string) error {
	if err := p.requireAI(); err != nil {
		return err
	}
	if rest == "" {
		return errors.New("usage: /explain <concept>")
	}
	_, err := p.stream(func(onChunk func(string)) (string, error) {
		return p.ai.ExplainConcept(ctx, rest, "", onChunk)
	})
	return err
}

func languageFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".rs":
		return "rust"
	case ".rb":
		return "ruby"
	case ".java":
		return "java"
	case ".c", ".h":
		return "c"
	case ".cpp", ".cc":
		return "cpp"
	case ".sh":
		return "bash"
	case ".sql":
		return "sql"
	}
	return strings.TrimPrefix(filepath.Ext(path), ".")
}
