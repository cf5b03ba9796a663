package models

import "time"

// Chat roles as stored in session history and sent to the AI client.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry in a session's chat history
type ChatMessage struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// SessionInfo is the listing projection of a persisted session
type SessionInfo struct {
	Name         string
	Created      time.Time
	LastModified time.Time
	LastAccessed time.Time
	WordCount    int
	Preview      string
}

// Preview returns the first n runes of text with newlines collapsed,
// for table display
func Preview(text string, n int) string {
	flat := make([]rune, 0, n+1)
	for _, r := range text {
		if r == '\n' || r == '\t' {
			r = ' '
		}
		flat = append(flat, r)
		if len(flat) > n {
			break
		}
	}
	if len(flat) > n {
		return string(flat[:n-3]) + "..."
	}
	return string(flat)
}
