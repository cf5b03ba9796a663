package repl

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown for terminal display. On any renderer
// failure the raw text comes back unchanged.
func RenderMarkdown(content string, width int) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return content
	}

	rendered, err := r.Render(content)
	if err != nil {
		return content
	}

	return strings.TrimRight(rendered, "\n")
}

// looksLikeMarkdown reports whether text carries structure worth a
// formatting pass. Plain prose reads fine as streamed.
func looksLikeMarkdown(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"),
			strings.HasPrefix(trimmed, "- "),
			strings.HasPrefix(trimmed, "* "),
			strings.HasPrefix(trimmed, "```"),
			strings.HasPrefix(trimmed, "> "):
			return true
		}
	}
	return strings.Contains(s, "**") || strings.Contains(s, "|")
}
