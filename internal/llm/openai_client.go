// internal/llm/openai_client.go
// Klien chat completion (OpenAI-compatible) untuk narasi laporan.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client is what the insight service needs from a language model.
type Client interface {
	// Narrative answer (plain text).
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Answer constrained to a single JSON object.
	AnswerJSON(ctx context.Context, system, prompt string) (string, error)

	Model() string
}

// ErrNotConfigured is returned by New when no API key is set.
var ErrNotConfigured = errors.New("llm api key not set")

type Config struct {
	APIKey  string
	BaseURL string // optional, for proxies and self-hosted endpoints
	Model   string // default gpt-4o-mini
	Timeout time.Duration
}

type OpenAIClient struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

func New(c Config) (*OpenAIClient, error) {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return nil, ErrNotConfigured
	}
	cfg := openai.DefaultConfig(key)
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		cfg.BaseURL = base
	}
	model := strings.TrimSpace(c.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIClient{api: openai.NewClientWithConfig(cfg), model: model, timeout: timeout}, nil
}

func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, system, prompt string) (string, error) {
	return c.chat(ctx, system, prompt, 0.2, nil)
}

func (c *OpenAIClient) AnswerJSON(ctx context.Context, system, prompt string) (string, error) {
	out, err := c.chat(ctx, system, prompt, 0, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
	if err != nil {
		return "", err
	}
	// models sometimes wrap the object in a ```json fence anyway
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```JSON")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	return strings.TrimSpace(out), nil
}

func (c *OpenAIClient) chat(ctx context.Context, system, prompt string, temp float32, format *openai.ChatCompletionResponseFormat) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    temp,
		ResponseFormat: format,
	}

	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
