package repl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/core/session"
	"github.com/CVO-TreeAi/terminote/internal/core/store"
)

// scriptReader feeds a fixed sequence of lines, then EOF
type scriptReader struct {
	lines []string
	next  int
}

func (s *scriptReader) ReadLine(prompt string) (string, error) {
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

func (s *scriptReader) Close() error { return nil }

type fakeAssistant struct {
	reply    string
	err      error
	lastCall string
	lastArg  string
}

func (f *fakeAssistant) answer(call, arg string, onChunk func(string)) (string, error) {
	f.lastCall = call
	f.lastArg = arg
	if f.err != nil {
		return "", f.err
	}
	if onChunk != nil {
		onChunk(f.reply)
	}
	return f.reply, nil
}

func (f *fakeAssistant) Chat(ctx context.Context, sess *models.Session, userText string, onChunk func(string)) (string, error) {
	return f.answer("chat", userText, onChunk)
}

func (f *fakeAssistant) WritingSuggestions(ctx context.Context, content, focus string, onChunk func(string)) (string, error) {
	return f.answer("suggest", focus, onChunk)
}

func (f *fakeAssistant) ContinueWriting(ctx context.Context, content, direction string, onChunk func(string)) (string, error) {
	return f.answer("continue", direction, onChunk)
}

func (f *fakeAssistant) GenerateOutline(ctx context.Context, topic, docType string, onChunk func(string)) (string, error) {
	return f.answer("outline", topic, onChunk)
}

func (f *fakeAssistant) BrainstormIdeas(ctx context.Context, topic string, n int, onChunk func(string)) (string, error) {
	return f.answer("brainstorm", topic, onChunk)
}

func writeFixture(t *testing.T, ai Assistant, lines ...string) (*WriteMode, *session.Manager, *bytes.Buffer) {
	t.Helper()
	cfg := config.Default(t.TempDir())
	cfg.UI.ShowTokenCount = false
	cfg.UI.AutoFormat = false

	st, err := store.New(cfg.SessionsDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	mgr := session.NewManager(st)
	sess, err := mgr.Create("draft1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	out := &bytes.Buffer{}
	w := NewWriteMode(mgr, ai, cfg, sess, &scriptReader{lines: lines}, out)
	return w, mgr, out
}

func TestWriteFreeTextAppendsAndSaves(t *testing.T) {
	w, mgr, out := writeFixture(t, nil,
		"Hello world",
		"Second paragraph here",
		"/quit",
	)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess, err := mgr.Load("draft1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "Hello world\n\nSecond paragraph here"
	if sess.Content != want {
		t.Errorf("Content = %q, want %q", sess.Content, want)
	}
	if sess.WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", sess.WordCount)
	}
	if !strings.Contains(out.String(), "[2 words]") {
		t.Errorf("output missing first word count:\n%s", out.String())
	}
}

func TestWriteQuitSavesDirtyWorkWithAutoSaveOff(t *testing.T) {
	w, mgr, out := writeFixture(t, nil, "unsaved words", "/quit")
	w.cfg.Preferences.AutoSave = false

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sess, err := mgr.Load("draft1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.Content != "unsaved words" {
		t.Errorf("Content = %q, want work saved on quit", sess.Content)
	}
	if !strings.Contains(out.String(), "Saved draft1") {
		t.Errorf("output missing save notice:\n%s", out.String())
	}
}

func TestWriteEOFBehavesLikeQuit(t *testing.T) {
	w, mgr, _ := writeFixture(t, nil, "last line")
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sess, err := mgr.Load("draft1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.Content != "last line" {
		t.Errorf("Content = %q, want saved on EOF", sess.Content)
	}
}

func TestWriteChatRecordsExchange(t *testing.T) {
	ai := &fakeAssistant{reply: "Try a stronger opening."}
	w, mgr, out := writeFixture(t, ai,
		"/chat how is my intro?",
		"/quit",
	)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if ai.lastCall != "chat" || ai.lastArg != "how is my intro?" {
		t.Errorf("assistant got %s(%q)", ai.lastCall, ai.lastArg)
	}
	if !strings.Contains(out.String(), "Try a stronger opening.") {
		t.Errorf("reply not streamed to output:\n%s", out.String())
	}

	sess, err := mgr.Load("draft1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sess.ChatHistory) != 2 {
		t.Fatalf("ChatHistory length = %d, want user+assistant", len(sess.ChatHistory))
	}
	if sess.ChatHistory[0].Role != models.RoleUser || sess.ChatHistory[1].Role != models.RoleAssistant {
		t.Errorf("roles = %s, %s", sess.ChatHistory[0].Role, sess.ChatHistory[1].Role)
	}
}

func TestWriteContinueAppendsAfterConfirm(t *testing.T) {
	ai := &fakeAssistant{reply: "And so the story continued."}
	w, mgr, _ := writeFixture(t, ai,
		"Once upon a time.",
		"/continue darker tone",
		"y",
		"/quit",
	)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ai.lastArg != "darker tone" {
		t.Errorf("direction = %q, want darker tone", ai.lastArg)
	}
	sess, err := mgr.Load("draft1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !strings.HasSuffix(sess.Content, "And so the story continued.") {
		t.Errorf("Content = %q, want continuation appended", sess.Content)
	}
}

func TestWriteContinueDeclinedLeavesDocument(t *testing.T) {
	ai := &fakeAssistant{reply: "Unwanted continuation."}
	w, mgr, _ := writeFixture(t, ai,
		"Original text.",
		"/continue",
		"",
		"/quit",
	)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sess, err := mgr.Load("draft1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if sess.Content != "Original text." {
		t.Errorf("Content = %q, continuation appended without consent", sess.Content)
	}
}

func TestWriteAICommandsWithoutKey(t *testing.T) {
	w, _, out := writeFixture(t, nil,
		"/chat hello",
		"/quit",
	)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), config.ErrMissingAPIKey.Error()) {
		t.Errorf("output missing API key guidance:\n%s", out.String())
	}
}

func TestWriteAIErrorIsReportedNotFatal(t *testing.T) {
	ai := &fakeAssistant{err: errors.New("model overloaded")}
	w, _, out := writeFixture(t, ai,
		"/chat hi",
		"still writing",
		"/quit",
	)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "model overloaded") {
		t.Errorf("AI error not surfaced:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "[2 words]") {
		t.Errorf("loop did not continue after AI error:\n%s", out.String())
	}
}

func TestWriteUnknownCommand(t *testing.T) {
	w, _, out := writeFixture(t, nil, "/frobnicate", "/quit")
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Unknown command /frobnicate") {
		t.Errorf("output = %s", out.String())
	}
}

func TestWriteExportWritesFile(t *testing.T) {
	w, _, out := writeFixture(t, nil,
		"Exported body text",
		"/export",
		"/quit",
	)

	// Export resolves relative paths against the working directory.
	dir := t.TempDir()
	t.Chdir(dir)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "Exported to") {
		t.Errorf("output missing export notice:\n%s", out.String())
	}
	data, err := os.ReadFile(filepath.Join(dir, "draft1.md"))
	if err != nil {
		t.Fatalf("exported file: %v", err)
	}
	if !strings.Contains(string(data), "Exported body text") {
		t.Errorf("exported file missing document body:\n%s", data)
	}
}

func TestWriteTokensCommand(t *testing.T) {
	w, _, out := writeFixture(t, nil,
		"some words to count",
		"/tokens",
		"/quit",
	)
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "tokens") || !strings.Contains(out.String(), "4 words") {
		t.Errorf("token report missing:\n%s", out.String())
	}
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in, cmd, rest string
	}{
		{"/save", "/save", ""},
		{"/chat  hello there ", "/chat", "hello there"},
		{"/OUTLINE topic", "/outline", "topic"},
	}
	for _, tt := range tests {
		cmd, rest := splitCommand(tt.in)
		if cmd != tt.cmd || rest != tt.rest {
			t.Errorf("splitCommand(%q) = %q, %q; want %q, %q", tt.in, cmd, rest, tt.cmd, tt.rest)
		}
	}
}

func TestConfirm(t *testing.T) {
	out := &bytes.Buffer{}
	tests := []struct {
		answer     string
		defaultYes bool
		want       bool
	}{
		{"y", false, true},
		{"yes", false, true},
		{"n", true, false},
		{"", true, true},
		{"", false, false},
		{"nonsense", true, false},
	}
	for _, tt := range tests {
		got := Confirm(&scriptReader{lines: []string{tt.answer}}, out, "Proceed?", tt.defaultYes)
		if got != tt.want {
			t.Errorf("Confirm(%q, defaultYes=%v) = %v, want %v", tt.answer, tt.defaultYes, got, tt.want)
		}
	}
}
