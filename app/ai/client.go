package ai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	maxResponseSize = 10 * 1024 * 1024
	maxErrorBody    = 200
	defaultTimeout  = 30 * time.Second
	messagesTokens  = 2048
)

type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	Timeout      time.Duration
	// JSON asks the vendor for a JSON object response when it supports it.
	JSON bool
}

type Completer interface {
	Complete(ctx context.Context, req Request) (json.RawMessage, error)
}

type Client struct {
	provider   Provider
	httpClient *http.Client
	logger     *slog.Logger
	timeout    time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithTimeout sets the per-call timeout used when a request carries none.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		client.timeout = timeout
	}
}

func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:   provider,
		httpClient: &http.Client{},
		logger:     slog.Default(),
		timeout:    defaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Provider() Provider {
	return c.provider
}

// Complete sends one request and returns the JSON value found in the reply.
// A vendor rejecting the response_format hint gets exactly one more attempt
// without it; nothing else is retried.
func (c *Client) Complete(ctx context.Context, req Request) (json.RawMessage, error) {
	jsonMode := req.JSON && c.provider.JSONMode

	content, err := c.send(ctx, req, jsonMode)

	var statusErr *StatusError
	if err != nil && jsonMode && errors.As(err, &statusErr) && statusErr.ShapeRejected() {
		c.logger.Warn("AI provider rejected response_format, retrying without it",
			"provider", c.provider.Kind,
			"status", statusErr.Code)
		content, err = c.send(ctx, req, false)
	}
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSON(content)
	if err != nil {
		return nil, fmt.Errorf("failed to extract JSON from reply: %w", err)
	}

	return raw, nil
}

func (c *Client) send(ctx context.Context, req Request, jsonMode bool) (string, error) {
	timeout := cmp.Or(req.Timeout, c.timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := c.buildBody(req, jsonMode)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.provider.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range c.provider.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
		}
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
		}
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("AI request completed",
		"provider", c.provider.Kind,
		"model", c.provider.Model,
		"status", resp.StatusCode,
		"json_mode", jsonMode,
		"duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(string(respBody), maxErrorBody)}
	}

	return c.parseContent(respBody)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

func (c *Client) buildBody(req Request, jsonMode bool) ([]byte, error) {
	if c.provider.Format == FormatMessages {
		return json.Marshal(messagesRequest{
			Model:       c.provider.Model,
			System:      req.SystemPrompt,
			Messages:    []chatMessage{{Role: "user", Content: req.UserPrompt}},
			MaxTokens:   messagesTokens,
			Temperature: req.Temperature,
		})
	}

	body := chatRequest{
		Model:       c.provider.Model,
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.UserPrompt})
	if jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	return json.Marshal(body)
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *Client) parseContent(body []byte) (string, error) {
	var content string

	switch c.provider.Format {
	case FormatMessages:
		var resp messagesResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		for _, block := range resp.Content {
			if block.Type == "" || block.Type == "text" {
				content += block.Text
			}
		}
	default:
		var resp chatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		if len(resp.Choices) > 0 {
			content = resp.Choices[0].Message.Content
		}
	}

	if content == "" {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}

	return content, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
