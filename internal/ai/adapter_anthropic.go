package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// AnthropicAdapter speaks the Anthropic messages API. The system prompt is a
// top-level field, not a message role.
type AnthropicAdapter struct {
	client *http.Client
}

// NewAnthropicAdapter creates an adapter for Anthropic Claude.
func NewAnthropicAdapter(client *http.Client) *AnthropicAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &AnthropicAdapter{client: client}
}

type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func (a *AnthropicAdapter) Call(ctx context.Context, cfg Config, prompt string) (Response, error) {
	body := anthropicRequest{
		Model:       cfg.Model,
		System:      cfg.SystemPrompt,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	base := cfg.APIBaseURL
	if base == "" {
		base = defaultAnthropicBaseURL
	}
	url := strings.TrimSuffix(base, "/") + "/v1/messages"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	setAuthHeader(httpReq.Header.Set, cfg.Provider, cfg.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, fmt.Errorf("anthropic api error: %s", providerErrorMessage(resp, respBody))
	}

	var msg anthropicResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(msg.Content) == 0 {
		return Response{}, fmt.Errorf("anthropic returned no content")
	}

	usage := &Usage{
		PromptTokens:     msg.Usage.InputTokens,
		CompletionTokens: msg.Usage.OutputTokens,
		TotalTokens:      msg.Usage.InputTokens + msg.Usage.OutputTokens,
	}

	return Response{
		Success: true,
		Content: msg.Content[0].Text,
		Usage:   usage,
		CostUSD: computeCost(cfg, usage),
	}, nil
}
