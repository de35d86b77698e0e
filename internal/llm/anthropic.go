package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/young1lin/deepdive/internal/config"
	"github.com/young1lin/deepdive/pkg/logger"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultVersion   = "2023-06-01"
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 2048
	messagesPath     = "/v1/messages"
)

// ErrEmptyResponse is returned when the model answers without any text block
var ErrEmptyResponse = errors.New("model returned no text content")

// Request is a single-turn completion request
type Request struct {
	System string
	User   string
}

// Client calls the Anthropic Messages API
type Client struct {
	apiKey    string
	baseURL   string
	version   string
	model     string
	maxTokens int
	client    *http.Client
}

// NewClient creates a new messages client. A zero timeout leaves the call
// unbounded on the client side.
func NewClient(cfg *config.LLMConfig) *Client {
	c := &Client{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		version:   cfg.Version,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.version == "" {
		c.version = defaultVersion
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	return c
}

// Model returns the model identifier sent with every request
func (c *Client) Model() string {
	return c.model
}

// IsAvailable returns true if an API key is configured
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	ID         string         `json:"id"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one messages request and returns the first text block verbatim
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	log := logger.Named("llm")

	reqBody, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    req.System,
		Messages:  []message{{Role: "user", Content: req.User}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", c.version)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	log.Debug("messages response",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", upstreamError(resp.StatusCode, body)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	log.Info("messages call completed",
		zap.String("model", c.model),
		zap.String("stop_reason", parsed.StopReason),
		zap.Int("input_tokens", parsed.Usage.InputTokens),
		zap.Int("output_tokens", parsed.Usage.OutputTokens),
	)

	for _, block := range parsed.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}

// upstreamError prefers the provider's own message over the raw body
func upstreamError(status int, body []byte) error {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("upstream error: status %d, %s: %s", status, parsed.Error.Type, parsed.Error.Message)
	}
	return fmt.Errorf("upstream error: status %d, body: %s", status, truncate(string(body), 400))
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars]) + "..."
}
