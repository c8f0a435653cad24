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

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleAdapter speaks the Gemini generateContent API. The system prompt
// travels as systemInstruction and credentials in the x-goog-api-key header.
type GoogleAdapter struct {
	client *http.Client
}

// NewGoogleAdapter creates an adapter for Google Gemini.
func NewGoogleAdapter(client *http.Client) *GoogleAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleAdapter{client: client}
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64  `json:"temperature"`
	MaxOutputTokens int      `json:"maxOutputTokens"`
	TopP            *float64 `json:"topP,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (a *GoogleAdapter) Call(ctx context.Context, cfg Config, prompt string) (Response, error) {
	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
			TopP:            cfg.TopP,
		},
	}
	if cfg.SystemPrompt != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: cfg.SystemPrompt}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	base := cfg.APIBaseURL
	if base == "" {
		base = defaultGeminiBaseURL
	}
	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(base, "/"), cfg.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
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
		return Response{}, fmt.Errorf("gemini api error: %s", providerErrorMessage(resp, respBody))
	}

	var gem geminiResponse
	if err := json.Unmarshal(respBody, &gem); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(gem.Candidates) == 0 || len(gem.Candidates[0].Content.Parts) == 0 {
		return Response{}, fmt.Errorf("no content in response")
	}

	total := gem.UsageMetadata.TotalTokenCount
	if total == 0 {
		total = gem.UsageMetadata.PromptTokenCount + gem.UsageMetadata.CandidatesTokenCount
	}
	usage := &Usage{
		PromptTokens:     gem.UsageMetadata.PromptTokenCount,
		CompletionTokens: gem.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      total,
	}

	return Response{
		Success: true,
		Content: gem.Candidates[0].Content.Parts[0].Text,
		Usage:   usage,
		CostUSD: computeCost(cfg, usage),
	}, nil
}
