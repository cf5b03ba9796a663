package llm

import (
	"context"
	"fmt"

	"github.com/CVO-TreeAi/terminote/internal/core/models"
)

// The assistance operations below each build one conversation and issue
// one request. System prompts come from the prompt engine so users can
// override any of them.

// Chat answers a free-form question inside a writing session, with the
// document and recent exchanges as context
func (c *Client) Chat(ctx context.Context, sess *models.Session, userText string, onChunk func(string)) (string, error) {
	system, err := c.prompts.Render("chat", nil)
	if err != nil {
		return "", err
	}

	messages := []models.ChatMessage{{Role: models.RoleSystem, Text: system}}
	if sess.Content != "" {
		messages = append(messages, models.ChatMessage{
			Role: models.RoleSystem,
			Text: fmt.Sprintf("Current document (%d words):\n\n%s", sess.WordCount, sess.Content),
		})
	}
	messages = append(messages, recentHistory(sess.ChatHistory)...)
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Text: userText})

	return c.Stream(ctx, "default", messages, onChunk)
}

// WritingSuggestions reviews content and proposes improvements. The
// focus string narrows what kind of feedback the user wants.
func (c *Client) WritingSuggestions(ctx context.Context, content, focus string, onChunk func(string)) (string, error) {
	system, err := c.prompts.Render("writing_suggestions", nil)
	if err != nil {
		return "", err
	}
	user := fmt.Sprintf("Context: %s\n\nContent to review:\n%s\n\nPlease provide suggestions for improvement:", focus, content)
	return c.Stream(ctx, "writing", []models.ChatMessage{
		{Role: models.RoleSystem, Text: system},
		{Role: models.RoleUser, Text: user},
	}, onChunk)
}

// ContinueWriting extends the document in the user's voice
func (c *Client) ContinueWriting(ctx context.Context, content, direction string, onChunk func(string)) (string, error) {
	system, err := c.prompts.Render("continue_writing", nil)
	if err != nil {
		return "", err
	}
	user := fmt.Sprintf("Please continue this writing:\n\n%s", content)
	if direction != "" {
		user += fmt.Sprintf("\n\nDirection: %s", direction)
	}
	return c.Stream(ctx, "writing", []models.ChatMessage{
		{Role: models.RoleSystem, Text: system},
		{Role: models.RoleUser, Text: user},
	}, onChunk)
}

// GenerateOutline produces a structured outline for a document type
func (c *Client) GenerateOutline(ctx context.Context, topic, docType string, onChunk func(string)) (string, error) {
	if docType == "" {
		docType = "article"
	}
	system, err := c.prompts.Render("outline", map[string]any{"doc_type": docType})
	if err != nil {
		return "", err
	}
	user := fmt.Sprintf("Create an outline for a %s about: %s", docType, topic)
	return c.Stream(ctx, "writing", []models.ChatMessage{
		{Role: models.RoleSystem, Text: system},
		{Role: models.RoleUser, Text: user},
	}, onChunk)
}

// BrainstormIdeas generates n ideas on a topic
func (c *Client) BrainstormIdeas(ctx context.Context, topic string, n int, onChunk func(string)) (string, error) {
	if n <= 0 {
		n = 10
	}
	system, err := c.prompts.Render("brainstorm", nil)
	if err != nil {
		return "", err
	}
	user := fmt.Sprintf("Brainstorm %d ideas related to: %s", n, topic)
	return c.Stream(ctx, "writing", []models.ChatMessage{
		{Role: models.RoleSystem, Text: system},
		{Role: models.RoleUser, Text: user},
	}, onChunk)
}

// DevelopProjectPlan produces a development plan from a description
func (c *Client) DevelopProjectPlan(ctx context.Context, description string, onChunk func(string)) (string, error) {
	system, err := c.prompts.Render("project_plan", nil)
	if err != nil {
		return "", err
	}
	user := fmt.Sprintf("Create a development plan for: %s", description)
	return c.Stream(ctx, "coding", []models.ChatMessage{
		{Role: models.RoleSystem, Text: system},
		{Role: models.RoleUser, Text: user},
	}, onChunk)
}

// ReviewCode analyzes code and reports issues
func (c *Client) ReviewCode(ctx context.Context, code, language string, onChunk func(string)) (string, error) {
	system, err := c.prompts.Render("code_review", nil)
	if err != nil {
		return "", err
	}
	user := fmt.Sprintf("Please review this %s code:\n\n```%s\n%s\n```", language, language, code)
	return c.Stream(ctx, "coding", []models.ChatMessage{
		{Role: models.RoleSystem, Text: system},
		{Role: models.RoleUser, Text: user},
	}, onChunk)
}

// ExplainConcept explains a concept at the requested depth
func (c *Client) ExplainConcept(ctx context.Context, concept, level string, onChunk func(string)) (string, error) {
	if level == "" {
		level = "intermediate"
	}
	system, err := c.prompts.Render("explain_concept", map[string]any{"level": level})
	if err != nil {
		return "", err
	}
	user := fmt.Sprintf("Explain this concept at a %s level: %s", level, concept)
	return c.Stream(ctx, "quick", []models.ChatMessage{
		{Role: models.RoleSystem, Text: system},
		{Role: models.RoleUser, Text: user},
	}, onChunk)
}
