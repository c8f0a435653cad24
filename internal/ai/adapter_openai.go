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

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIAdapter speaks the OpenAI chat-completions wire format. It also
// serves "custom" configurations (arbitrary OpenAI-compatible endpoints with
// optional extra headers) and "azure" configurations, whose URL embeds the
// deployment name and api-version instead of the /v1 path.
type OpenAIAdapter struct {
	client *http.Client
}

// NewOpenAIAdapter creates an adapter for OpenAI-compatible backends.
func NewOpenAIAdapter(client *http.Client) *OpenAIAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIAdapter{client: client}
}

// chatRequest is the OpenAI chat completions request body. Optional sampling
// parameters are pointers so absent configuration omits them entirely.
type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             *float64      `json:"top_p,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

func (a *OpenAIAdapter) Call(ctx context.Context, cfg Config, prompt string) (Response, error) {
	system := cfg.SystemPrompt
	if system == "" {
		system = "You are a helpful assistant."
	}

	body := chatRequest{
		Model: cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		TopP:             cfg.TopP,
		FrequencyPenalty: cfg.FrequencyPenalty,
		PresencePenalty:  cfg.PresencePenalty,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, completionsURL(cfg), bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.CustomHeaders {
		httpReq.Header.Set(k, v)
	}
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
		return Response{}, fmt.Errorf("%s api error: %s", cfg.Provider, providerErrorMessage(resp, respBody))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in response")
	}

	return Response{
		Success: true,
		Content: chat.Choices[0].Message.Content,
		Usage:   chat.Usage,
		CostUSD: computeCost(cfg, chat.Usage),
	}, nil
}

// completionsURL builds the chat-completions endpoint for a configuration.
// Azure embeds the deployment name and api-version in the URL; everything
// else gets the standard /v1/chat/completions suffix unless the configured
// base already contains it.
func completionsURL(cfg Config) string {
	base := cfg.APIBaseURL
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	base = strings.TrimSuffix(base, "/")

	if cfg.Provider == ProviderAzure {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", base, cfg.Model, cfg.APIVersion)
	}
	if strings.Contains(base, "/chat/completions") {
		return base
	}
	return base + "/v1/chat/completions"
}

// providerErrorMessage extracts a human-readable error from a non-2xx
// provider response: the JSON error message when the body parses, otherwise
// the raw body, otherwise the HTTP status text.
func providerErrorMessage(resp *http.Response, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return resp.Status
	}

	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != nil && envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	return trimmed
}
