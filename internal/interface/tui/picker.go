// Package tui implements the interactive session picker behind
// `neo sessions pick`.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/CVO-TreeAi/terminote/internal/core/models"
)

// Model is the bubbletea model for the picker. After Run returns,
// Picked holds the chosen session name, or "" if the user backed out.
type Model struct {
	sessions []models.SessionInfo
	filtered []models.SessionInfo
	cursor   int
	offset   int
	width    int
	height   int

	searching   bool
	searchInput textinput.Model

	picked   string
	quitting bool
}

// New builds a picker over sessions, assumed already sorted by the
// caller (most recently modified first)
func New(sessions []models.SessionInfo) Model {
	si := textinput.New()
	si.Placeholder = "search..."
	si.CharLimit = 100

	m := Model{
		sessions:    sessions,
		searchInput: si,
		width:       100,
		height:      24,
	}
	m.applyFilter()
	return m
}

// Picked returns the selected session name, or "" when none was chosen
func (m Model) Picked() string { return m.picked }

func (m *Model) applyFilter() {
	m.filtered = nil
	query := strings.ToLower(m.searchInput.Value())
	for _, s := range m.sessions {
		if query != "" {
			haystack := strings.ToLower(s.Name + " " + s.Preview)
			if !strings.Contains(haystack, query) {
				continue
			}
		}
		m.filtered = append(m.filtered, s)
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m.clampOffset()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
		}

	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
			m.clampOffset()
		}

	case "home", "g":
		m.cursor = 0
		m.clampOffset()

	case "end", "G":
		m.cursor = max(0, len(m.filtered)-1)
		m.clampOffset()

	case "pgup":
		m.cursor -= m.visibleRows()
		if m.cursor < 0 {
			m.cursor = 0
		}
		m.clampOffset()

	case "pgdown":
		m.cursor += m.visibleRows()
		if m.cursor >= len(m.filtered) {
			m.cursor = len(m.filtered) - 1
		}
		m.clampOffset()

	case "enter":
		if len(m.filtered) > 0 {
			m.picked = m.filtered[m.cursor].Name
			m.quitting = true
			return m, tea.Quit
		}

	case "/":
		m.searching = true
		m.searchInput.Focus()
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := titleStyle.Render("TermiNote Sessions")
	count := dimStyle.Render(fmt.Sprintf("  %d session(s)", len(m.filtered)))
	b.WriteString(title + count + "\n")

	b.WriteString(m.renderHeader() + "\n")

	visible := m.visibleRows()
	end := m.offset + visible
	if end > len(m.filtered) {
		end = len(m.filtered)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.filtered[i], i == m.cursor) + "\n")
	}
	for i := end - m.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	if m.searching {
		b.WriteString("Search: " + m.searchInput.View())
	} else {
		b.WriteString(helpStyle.Render("  Enter: open  /: search  q: quit"))
	}

	return b.String()
}

func (m Model) renderHeader() string {
	w := m.colWidths()
	cols := []string{
		pad("Name", w.name),
		pad("Words", w.words),
		pad("Modified", w.modified),
		pad("Preview", w.preview),
	}
	return headerStyle.Render(strings.Join(cols, " "))
}

func (m Model) renderRow(s models.SessionInfo, selected bool) string {
	w := m.colWidths()
	cols := []string{
		pad(s.Name, w.name),
		pad(fmt.Sprintf("%d", s.WordCount), w.words),
		pad(humanize.Time(s.LastModified), w.modified),
		pad(s.Preview, w.preview),
	}
	row := strings.Join(cols, " ")
	if selected {
		return selectedStyle.Render("> " + row)
	}
	return "  " + row
}

type colWidths struct {
	name     int
	words    int
	modified int
	preview  int
}

func (m Model) colWidths() colWidths {
	w := colWidths{
		name:     24,
		words:    6,
		modified: 14,
	}
	used := w.name + w.words + w.modified + 6
	w.preview = m.width - used
	if w.preview < 16 {
		w.preview = 16
	}
	return w
}

func (m Model) visibleRows() int {
	rows := m.height - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// Pick runs the picker full-screen and returns the chosen session name,
// or "" when the user quit without choosing
func Pick(sessions []models.SessionInfo) (string, error) {
	p := tea.NewProgram(New(sessions), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("run picker: %w", err)
	}
	if m, ok := final.(Model); ok {
		return m.Picked(), nil
	}
	return "", nil
}
