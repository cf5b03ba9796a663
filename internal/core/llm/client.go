// Package llm is the single boundary to the remote AI API. One request
// per assistance action; retries and backoff live here, not in callers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/CVO-TreeAi/terminote/internal/core/config"
	"github.com/CVO-TreeAi/terminote/internal/core/logging"
	"github.com/CVO-TreeAi/terminote/internal/core/models"
	"github.com/CVO-TreeAi/terminote/internal/core/prompts"
)

// OpenRouter speaks the OpenAI chat-completion protocol.
const openRouterBaseURL = "https://openrouter.ai/api/v1"

// historyWindow caps how many prior chat messages ride along as context.
const historyWindow = 10

// Client talks to OpenRouter on behalf of every AI operation
type Client struct {
	api     *openai.Client
	cfg     *config.Config
	prompts *prompts.Engine
	log     *slog.Logger
}

// NewClient builds the OpenRouter client. Best-effort retries are wired
// into the transport; a request that keeps failing surfaces its last
// error to the caller.
func NewClient(cfg *config.Config, engine *prompts.Engine) (*Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	retry := retryablehttp.NewClient()
	retry.RetryMax = 2
	retry.RetryWaitMin = 1 * time.Second
	retry.RetryWaitMax = 10 * time.Second
	retry.Logger = nil

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = openRouterBaseURL
	apiCfg.HTTPClient = retry.StandardClient()

	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		cfg:     cfg,
		prompts: engine,
		log:     logging.WithComponent("llm"),
	}, nil
}

// Stream issues one streaming chat-completion request for the given task
// category. Each text delta is handed to onChunk as it arrives; the
// assembled response is returned once the stream ends. A stream that
// dies after producing content returns what was received.
func (c *Client) Stream(ctx context.Context, task string, messages []models.ChatMessage, onChunk func(string)) (string, error) {
	model := c.cfg.ModelFor(task)
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toAPIMessages(messages),
		MaxTokens:   c.cfg.Preferences.MaxTokens,
		Temperature: c.cfg.Preferences.Temperature,
		Stream:      true,
	}

	c.log.Debug("chat completion request", "model", model, "task", task, "messages", len(messages))

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer stream.Close()

	var out strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if out.Len() > 0 {
				c.log.Warn("stream ended early, returning partial response", "error", err)
				break
			}
			return "", fmt.Errorf("receive stream: %w", err)
		}
		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				out.WriteString(choice.Delta.Content)
				if onChunk != nil {
					onChunk(choice.Delta.Content)
				}
			}
		}
	}
	return out.String(), nil
}

// TestConnection issues a minimal authenticated completion against the
// quick model. Used by setup and doctor.
func (c *Client) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.ModelFor("quick"),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hello"},
		},
		MaxTokens: 10,
	})
	if err != nil {
		return fmt.Errorf("test connection: %w", err)
	}
	return nil
}

func toAPIMessages(messages []models.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Text})
	}
	return out
}

// recentHistory returns the tail of a session's chat history sized to
// the context window
func recentHistory(history []models.ChatMessage) []models.ChatMessage {
	if len(history) <= historyWindow {
		return history
	}
	return history[len(history)-historyWindow:]
}
