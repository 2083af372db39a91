package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/blueberry-browser/blueberry-go/pkg/llm"
)

const (
	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "claude-3-5-sonnet-20241022"

	// DefaultBaseURL is used when Config.BaseURL is empty.
	DefaultBaseURL = "https://api.anthropic.com"

	apiVersion = "2023-06-01"
)

// Client is an Anthropic LLM client.
// It implements the llm.Provider interface on top of the Messages API.
// System messages are sent in the top-level system field.
type Client struct {
	client *resty.Client
	model  string
}

// Config is the configuration for Anthropic LLM.
// APIKey: Anthropic API key (required)
// Model: Model name to use, defaults to "claude-3-5-sonnet-20241022"
// BaseURL: API base URL, defaults to "https://api.anthropic.com"
// Timeout: request timeout, defaults to 120 seconds
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type messagesRequest struct {
	Model         string        `json:"model"`
	MaxTokens     int           `json:"max_tokens"`
	Temperature   float64       `json:"temperature"`
	TopP          float64       `json:"top_p"`
	System        string        `json:"system,omitempty"`
	StopSequences []string      `json:"stop_sequences,omitempty"`
	Messages      []llm.Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// NewClient creates a new Anthropic LLM client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", apiVersion)

	return &Client{client: c, model: model}, nil
}

// Generate generates text based on the prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}
	return c.GenerateWithMessages(ctx, messages, opts...)
}

// GenerateWithMessages generates text using message history.
//
// The Messages API has no JSON mode; when JSONMode is requested the reply is
// prefilled with "{" and the brace is restored on the returned text.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []llm.Message, opts ...llm.GenerateOption) (string, error) {
	options := llm.ApplyGenerateOptions(opts)

	req := messagesRequest{
		Model:         c.model,
		MaxTokens:     options.MaxTokens,
		Temperature:   options.Temperature,
		TopP:          options.TopP,
		StopSequences: options.Stop,
	}

	var system []string
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		req.Messages = append(req.Messages, msg)
	}
	req.System = strings.Join(system, "\n\n")

	if options.JSONMode {
		req.Messages = append(req.Messages, llm.Message{Role: llm.RoleAssistant, Content: "{"})
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&req).
		Post("/v1/messages")
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode(), resp.String())
	}

	var response messagesResponse
	if err := json.Unmarshal(resp.Body(), &response); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("llm generation failed: no content returned from Anthropic API")
	}

	if options.JSONMode {
		return "{" + text.String(), nil
	}
	return text.String(), nil
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}
