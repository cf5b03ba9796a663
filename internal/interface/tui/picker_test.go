package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/CVO-TreeAi/terminote/internal/core/models"
)

func testSessions() []models.SessionInfo {
	now := time.Now()
	return []models.SessionInfo{
		{Name: "novel-draft", WordCount: 1200, LastModified: now, Preview: "It was a dark and stormy night"},
		{Name: "blog-post", WordCount: 300, LastModified: now.Add(-time.Hour), Preview: "Go generics in practice"},
		{Name: "meeting-notes", WordCount: 80, LastModified: now.Add(-48 * time.Hour), Preview: "Attendees: everyone"},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(key(k))
		var ok bool
		m, ok = next.(Model)
		if !ok {
			t.Fatalf("Update returned %T, want Model", next)
		}
	}
	return m
}

func TestPickerSelectsUnderCursor(t *testing.T) {
	m := New(testSessions())
	m = step(t, m, "down", "enter")
	if got := m.Picked(); got != "blog-post" {
		t.Errorf("Picked() = %q, want blog-post", got)
	}
}

func TestPickerQuitWithoutChoice(t *testing.T) {
	m := New(testSessions())
	m = step(t, m, "down", "q")
	if got := m.Picked(); got != "" {
		t.Errorf("Picked() = %q, want empty after quit", got)
	}
}

func TestPickerSearchFilters(t *testing.T) {
	m := New(testSessions())
	m = step(t, m, "/", "b", "l", "o", "g", "enter")
	if len(m.filtered) != 1 || m.filtered[0].Name != "blog-post" {
		t.Fatalf("filtered = %+v, want only blog-post", m.filtered)
	}
	m = step(t, m, "enter")
	if got := m.Picked(); got != "blog-post" {
		t.Errorf("Picked() = %q, want blog-post", got)
	}
}

func TestPickerSearchMatchesPreview(t *testing.T) {
	m := New(testSessions())
	m = step(t, m, "/", "g", "e", "n", "e", "r", "i", "c", "s", "esc")
	if len(m.filtered) != 1 || m.filtered[0].Name != "blog-post" {
		t.Fatalf("filtered = %+v, want preview match", m.filtered)
	}
}

func TestPickerCursorStaysInBounds(t *testing.T) {
	m := New(testSessions())
	m = step(t, m, "up", "up")
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want clamped at 0", m.cursor)
	}
	m = step(t, m, "down", "down", "down", "down", "down")
	if m.cursor != 2 {
		t.Errorf("cursor = %d, want clamped at last row", m.cursor)
	}
}

func TestPickerViewListsSessions(t *testing.T) {
	m := New(testSessions())
	view := m.View()
	for _, want := range []string{"novel-draft", "blog-post", "meeting-notes", "Words"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestPickerEmptyList(t *testing.T) {
	m := New(nil)
	m = step(t, m, "enter")
	if got := m.Picked(); got != "" {
		t.Errorf("Picked() = %q on empty list", got)
	}
	if view := m.View(); !strings.Contains(view, "0 session(s)") {
		t.Errorf("View() = %s", view)
	}
}
