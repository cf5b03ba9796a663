package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxNameLength caps session names before they become filenames.
const MaxNameLength = 100

// Session represents a TermiNote writing session
type Session struct {
	Name         string        `json:"name"`
	Created      time.Time     `json:"created"`
	LastModified time.Time     `json:"last_modified"`
	LastAccessed time.Time     `json:"last_accessed"`
	Content      string        `json:"content"`
	WordCount    int           `json:"word_count"`
	ChatHistory  []ChatMessage `json:"chat_history,omitempty"`
	Metadata     Metadata      `json:"metadata"`

	// Recovery flags set by the store when a load did not come from a
	// healthy primary file. Never persisted.
	Recovered          bool `json:"-"`
	RestoredFromBackup bool `json:"-"`
}

// Metadata holds the user-editable session annotations plus free-form extras
type Metadata struct {
	Tags    []string          `json:"tags,omitempty"`
	Notes   string            `json:"notes,omitempty"`
	Project string            `json:"project,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// NewSession returns an empty session stamped with the current time
func NewSession(name string) *Session {
	now := time.Now()
	return &Session{
		Name:         name,
		Created:      now,
		LastModified: now,
		LastAccessed: now,
	}
}

// Validate checks if the session has required fields
func (s *Session) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Created.IsZero() {
		return errors.New("created timestamp is required")
	}
	return nil
}

// RecountWords recomputes the word count from the current content
func (s *Session) RecountWords() {
	s.WordCount = CountWords(s.Content)
}

// AppendParagraph adds a block of text to the content buffer with a
// blank-line separator
func (s *Session) AppendParagraph(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if s.Content != "" {
		s.Content += "\n\n"
	}
	s.Content += text
	s.RecountWords()
}

// RecordExchange appends a user/assistant pair to the chat history
func (s *Session) RecordExchange(userText, assistantText string) {
	now := time.Now()
	s.ChatHistory = append(s.ChatHistory,
		ChatMessage{Role: RoleUser, Text: userText, Timestamp: now},
		ChatMessage{Role: RoleAssistant, Text: assistantText, Timestamp: now},
	)
}

// CountWords returns the number of whitespace-delimited words in text
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// GeneratedName returns the timestamped name used when the user starts a
// session without naming it
func GeneratedName(now time.Time) string {
	return fmt.Sprintf("session_%s", now.Format("20060102_150405"))
}
