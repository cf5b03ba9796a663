// Package repl implements the interactive writing and project modes.
// Both are line-oriented loops: free text goes into the document,
// slash commands drive saving, AI assistance, and export.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/editor"
	"github.com/CVO-TreeAi/terminote/internal/core/llm"
	"github.com/CVO-TreeAi/terminote/internal/core/logging"
	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/core/session"
)

// Assistant is the slice of the AI client write mode uses. It is nil
// when no API key is configured; everything except AI commands still
// works.
type Assistant interface {
	Chat(ctx context.Context, sess *models.Session, userText string, onChunk func(string)) (string, error)
	WritingSuggestions(ctx context.Context, content, focus string, onChunk func(string)) (string, error)
	ContinueWriting(ctx context.Context, content, direction string, onChunk func(string)) (string, error)
	GenerateOutline(ctx context.Context, topic, docType string, onChunk func(string)) (string, error)
	BrainstormIdeas(ctx context.Context, topic string, n int, onChunk func(string)) (string, error)
}

// WriteMode is one interactive writing session over a loaded document
type WriteMode struct {
	mgr *session.Manager
	ai  Assistant
	cfg *config.Config
	tok *llm.Tokenizer
	in  LineReader
	out io.Writer
	log *slog.Logger

	sess      *models.Session
	lastReply string
	dirty     bool
}

// NewWriteMode wires a write-mode loop for sess
func NewWriteMode(mgr *session.Manager, ai Assistant, cfg *config.Config, sess *models.Session, in LineReader, out io.Writer) *WriteMode {
	return &WriteMode{
		mgr:  mgr,
		ai:   ai,
		cfg:  cfg,
		tok:  llm.NewTokenizer(),
		in:   in,
		out:  out,
		log:  logging.WithComponent("write"),
		sess: sess,
	}
}

// Run reads lines until /quit or EOF. Unsaved changes are written on
// the way out.
func (w *WriteMode) Run(ctx context.Context) error {
	fmt.Fprintf(w.out, "Writing session: %s (%d words)\n", w.sess.Name, w.sess.WordCount)
	fmt.Fprintln(w.out, "Type to write. /help lists commands.")
	fmt.Fprintln(w.out)

	for {
		line, err := w.in.ReadLine("> ")
		if errors.Is(err, ErrInterrupt) {
			fmt.Fprintln(w.out, "Use /quit to leave (your work will be saved).")
			continue
		}
		if errors.Is(err, io.EOF) {
			return w.finish()
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := w.dispatch(ctx, line)
			if err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
			}
			if quit {
				return w.finish()
			}
			continue
		}

		w.sess.AppendParagraph(line)
		w.dirty = true
		fmt.Fprintf(w.out, "[%d words]\n", w.sess.WordCount)
		w.autoSave()
	}
}

// dispatch routes one slash command. It reports whether the loop
// should end.
func (w *WriteMode) dispatch(ctx context.Context, line string) (bool, error) {
	cmd, rest := splitCommand(line)
	switch cmd {
	case "/quit", "/q", "/exit":
		return true, nil
	case "/help", "/h":
		w.printHelp()
	case "/save":
		if err := w.save(); err != nil {
			return false, err
		}
		fmt.Fprintf(w.out, "Saved %s (%d words)\n", w.sess.Name, w.sess.WordCount)
	case "/chat":
		return false, w.chat(ctx, rest)
	case "/continue":
		return false, w.continueWriting(ctx, rest)
	case "/suggest":
		return false, w.suggest(ctx, rest)
	case "/outline":
		return false, w.outline(ctx, rest)
	case "/brainstorm":
		return false, w.brainstorm(ctx, rest)
	case "/export":
		return false, w.export(rest)
	case "/edit":
		return false, w.editExternal()
	case "/copy":
		return false, w.copyLastReply()
	case "/tokens":
		w.printTokens()
	default:
		fmt.Fprintf(w.out, "Unknown command %s. /help lists commands.\n", cmd)
	}
	return false, nil
}

func (w *WriteMode) printHelp() {
	fmt.Fprintln(w.out, `Commands:
  /save               Save the session
  /chat <message>     Ask the AI about your document
  /continue [hint]    Have the AI continue your writing
  /suggest [focus]    Get improvement suggestions
  /outline <topic>    Generate an outline
  /brainstorm <topic> Brainstorm ideas
  /export [path]      Export to markdown
  /edit               Open the document in $EDITOR
  /copy               Copy the last AI reply to the clipboard
  /tokens             Show token counts
  /quit               Save and leave`)
}

func (w *WriteMode) save() error {
	if err := w.mgr.Save(w.sess); err != nil {
		return err
	}
	w.dirty = false
	return nil
}

func (w *WriteMode) autoSave() {
	if !w.cfg.Preferences.AutoSave {
		return
	}
	if err := w.save(); err != nil {
		fmt.Fprintf(w.out, "Auto-save failed: %v\n", err)
	}
}

func (w *WriteMode) finish() error {
	if w.dirty {
		if err := w.save(); err != nil {
			return fmt.Errorf("save on exit: %w", err)
		}
		fmt.Fprintf(w.out, "Saved %s.\n", w.sess.Name)
	}
	fmt.Fprintln(w.out, "Goodbye.")
	return nil
}

// stream runs one AI call, echoing chunks as they arrive, and returns
// the full reply. Structured replies get a formatting pass afterwards.
func (w *WriteMode) stream(call func(onChunk func(string)) (string, error)) (string, error) {
	reply, err := call(func(chunk string) { fmt.Fprint(w.out, chunk) })
	fmt.Fprintln(w.out)
	if err != nil {
		return "", err
	}
	if w.cfg.UI.AutoFormat && looksLikeMarkdown(reply) {
		fmt.Fprintln(w.out)
		fmt.Fprintln(w.out, RenderMarkdown(reply, 80))
	}
	w.lastReply = reply
	if w.cfg.UI.ShowTokenCount {
		fmt.Fprintf(w.out, "[~%d tokens]\n", w.tok.Count(reply))
	}
	return reply, nil
}

func (w *WriteMode) requireAI() error {
	if w.ai == nil {
		return config.ErrMissingAPIKey
	}
	return nil
}

func (w *WriteMode) chat(ctx context.Context, message string) error {
	if err := w.requireAI(); err != nil {
		return err
	}
	if message == "" {
		return errors.New("usage: /chat <message>")
	}
	reply, err := w.stream(func(onChunk func(string)) (string, error) {
		return w.ai.Chat(ctx, w.sess, message, onChunk)
	})
	if err != nil {
		return err
	}
	w.sess.RecordExchange(message, reply)
	w.dirty = true
	w.autoSave()
	return nil
}

func (w *WriteMode) continueWriting(ctx context.Context, direction string) error {
	if err := w.requireAI(); err != nil {
		return err
	}
	if strings.TrimSpace(w.sess.Content) == "" {
		return errors.New("nothing to continue yet; write something first")
	}
	reply, err := w.stream(func(onChunk func(string)) (string, error) {
		return w.ai.ContinueWriting(ctx, w.sess.Content, direction, onChunk)
	})
	if err != nil {
		return err
	}
	if Confirm(w.in, w.out, "Append to document?", false) {
		w.sess.AppendParagraph(reply)
		w.dirty = true
		fmt.Fprintf(w.out, "[%d words]\n", w.sess.WordCount)
		w.autoSave()
	}
	return nil
}

func (w *WriteMode) suggest(ctx context.Context, focus string) error {
	if err := w.requireAI(); err != nil {
		return err
	}
	if strings.TrimSpace(w.sess.Content) == "" {
		return errors.New("nothing to review yet; write something first")
	}
	if focus == "" {
		focus = "general improvement"
	}
	_, err := w.stream(func(onChunk func(string)) (string, error) {
		return w.ai.WritingSuggestions(ctx, w.sess.Content, focus, onChunk)
	})
	return err
}

func (w *WriteMode) outline(ctx context.Context, rest string) error {
	if err := w.requireAI(); err != nil {
		return err
	}
	if rest == "" {
		return errors.New("usage: /outline <topic>")
	}
	_, err := w.stream(func(onChunk func(string)) (string, error) {
		return w.ai.GenerateOutline(ctx, rest, "", onChunk)
	})
	return err
}

func (w *WriteMode) brainstorm(ctx context.Context, rest string) error {
	if err := w.requireAI(); err != nil {
		return err
	}
	if rest == "" {
		return errors.New("usage: /brainstorm <topic> [count]")
	}
	topic, count := rest, 0
	if fields := strings.Fields(rest); len(fields) > 1 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			count = n
			topic = strings.Join(fields[:len(fields)-1], " ")
		}
	}
	_, err := w.stream(func(onChunk func(string)) (string, error) {
		return w.ai.BrainstormIdeas(ctx, topic, count, onChunk)
	})
	return err
}

func (w *WriteMode) export(path string) error {
	if w.dirty {
		if err := w.save(); err != nil {
			return err
		}
	}
	out, err := w.mgr.Export(w.sess.Name, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "Exported to %s\n", out)
	return nil
}

func (w *WriteMode) editExternal() error {
	edited, err := editor.EditText(w.sess.Name, w.sess.Content)
	if err != nil {
		return err
	}
	if edited == w.sess.Content {
		fmt.Fprintln(w.out, "No changes.")
		return nil
	}
	w.sess.Content = edited
	w.sess.RecountWords()
	w.dirty = true
	fmt.Fprintf(w.out, "[%d words]\n", w.sess.WordCount)
	w.autoSave()
	return nil
}

func (w *WriteMode) copyLastReply() error {
	if w.lastReply == "" {
		return errors.New("no AI reply to copy yet")
	}
	if err := clipboard.WriteAll(w.lastReply); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Fprintln(w.out, "Copied last reply to clipboard.")
	return nil
}

func (w *WriteMode) printTokens() {
	marker := "~"
	if w.tok.IsPrecise() {
		marker = ""
	}
	fmt.Fprintf(w.out, "Document: %s%d tokens, %d words\n", marker, w.tok.Count(w.sess.Content), w.sess.WordCount)
	if w.lastReply != "" {
		fmt.Fprintf(w.out, "Last reply: %s%d tokens\n", marker, w.tok.Count(w.lastReply))
	}
}

// splitCommand separates "/cmd rest of line" into its parts
func splitCommand(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return cmd, ""
	}
	return cmd, strings.TrimSpace(parts[1])
}
