// Package llm holds the language-model helpers shared by the analysis steps.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Generator is the subset of llms.Model the pipeline uses.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// DefaultRetries is how many times a JSON generation is attempted.
const DefaultRetries = 3

var fencePattern = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.*?)\\s*```\\s*$")

// CleanJSON strips markdown code fences models like to wrap JSON in.
func CleanJSON(content string) string {
	content = strings.TrimSpace(content)
	if m := fencePattern.FindStringSubmatch(content); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return content
}

// Client runs prompts against a Generator.
type Client struct {
	Model   Generator
	Retries int
	Backoff time.Duration
	Logger  *slog.Logger
}

func NewClient(model Generator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		Model:   model,
		Retries: DefaultRetries,
		Backoff: time.Second,
		Logger:  logger,
	}
}

// Text sends a system and human message and returns the first choice.
func (c *Client) Text(ctx context.Context, system, human string, opts ...llms.CallOption) (string, error) {
	messages := make([]llms.MessageContent, 0, 2)
	if system != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, human))

	resp, err := c.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}

// JSON generates a response and decodes it into out, retrying with linear
// backoff when the model fails or returns something that does not decode.
// The last raw response is returned alongside any error.
func (c *Client) JSON(ctx context.Context, system, human string, out any, opts ...llms.CallOption) (string, error) {
	retries := c.Retries
	if retries <= 0 {
		retries = 1
	}
	opts = append(opts, llms.WithJSONMode())

	var lastErr error
	var raw string
	for i := 0; i < retries; i++ {
		if i > 0 {
			c.Logger.Warn("Retrying LLM generation", "attempt", i+1, "last_error", lastErr)
			select {
			case <-ctx.Done():
				return raw, ctx.Err()
			case <-time.After(c.Backoff * time.Duration(i)):
			}
		}

		content, err := c.Text(ctx, system, human, opts...)
		if err != nil {
			lastErr = err
			continue
		}
		raw = content

		if err := json.Unmarshal([]byte(CleanJSON(content)), out); err != nil {
			lastErr = fmt.Errorf("json parse error: %w", err)
			continue
		}
		return raw, nil
	}

	return raw, fmt.Errorf("operation failed after %d retries: %w", retries, lastErr)
}
