// Package ai provides the provider-agnostic AI gateway: a configuration
// registry backed by storage, per-provider HTTP adapters, per-user rate
// limiting and short-lived response caching.
package ai

import "context"

// Provider identifies a backend family. The value stored on a configuration
// row decides which adapter handles it.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderGoogle     Provider = "google"
	ProviderAzure      Provider = "azure"
	ProviderCustom     Provider = "custom"
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderCartesia   Provider = "cartesia"
	ProviderDeepgram   Provider = "deepgram"
	ProviderHume       Provider = "hume"
)

// IsVoice reports whether the provider produces synthesized media rather than
// text completions. Voice results are never cached.
func (p Provider) IsVoice() bool {
	switch p {
	case ProviderElevenLabs, ProviderCartesia, ProviderDeepgram, ProviderHume:
		return true
	}
	return false
}

// Config is one provider configuration row: model id, credentials and
// generation parameters for a single AI backend. Loaded in bulk into the
// Registry and never mutated in place; updates reload the full set.
type Config struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Provider         Provider          `json:"provider"`
	Model            string            `json:"model"` // model name, voice id, or Azure deployment name
	APIKey           string            `json:"api_key,omitempty"`
	APIBaseURL       string            `json:"api_base_url,omitempty"`
	APIVersion       string            `json:"api_version,omitempty"`
	Temperature      float64           `json:"temperature"`
	MaxTokens        int               `json:"max_tokens"`
	TopP             *float64          `json:"top_p,omitempty"`
	FrequencyPenalty *float64          `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64          `json:"presence_penalty,omitempty"`
	SystemPrompt     string            `json:"system_prompt,omitempty"`
	IsDefault        bool              `json:"is_default,omitempty"`
	IsActive         bool              `json:"is_active,omitempty"`
	CustomHeaders    map[string]string `json:"custom_headers,omitempty"`
	CostPer1kInput   float64           `json:"cost_per_1k_input_tokens,omitempty"`
	CostPer1kOutput  float64           `json:"cost_per_1k_output_tokens,omitempty"`
	TimeoutMS        int               `json:"timeout_ms,omitempty"`
}

// Usage holds provider-reported token counts.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the normalized result of one gateway call. Immutable once
// produced; consumed by callers and by the response cache.
type Response struct {
	Success          bool    `json:"success"`
	Content          string  `json:"content,omitempty"`
	Usage            *Usage  `json:"usage,omitempty"`
	CostUSD          float64 `json:"cost_usd,omitempty"`
	ProcessingTimeMS int64   `json:"processing_time_ms"`
	Error            string  `json:"error,omitempty"`
	MediaRef         string  `json:"media_ref,omitempty"` // opaque reference for voice providers
}

// Adapter translates a (configuration, prompt) pair into one provider's HTTP
// contract and back into a normalized Response. Adapters return errors for
// transport and provider failures; the gateway converts them into
// {Success:false} results.
type Adapter interface {
	Call(ctx context.Context, cfg Config, prompt string) (Response, error)
}

// authHeader holds the credential header one provider family expects.
type authHeader struct {
	name   string
	prefix string // prepended to the key, e.g. "Bearer "
}

// authHeaders is the per-provider credential dispatch table. Providers not
// listed fall back to Authorization: Bearer.
var authHeaders = map[Provider]authHeader{
	ProviderOpenAI:    {name: "Authorization", prefix: "Bearer "},
	ProviderCustom:    {name: "Authorization", prefix: "Bearer "},
	ProviderAnthropic: {name: "x-api-key"},
	ProviderGoogle:    {name: "x-goog-api-key"},
	ProviderAzure:     {name: "api-key"},
	ProviderDeepgram:  {name: "Authorization", prefix: "Token "},
	ProviderHume:      {name: "X-Hume-Api-Key"},
	ProviderCartesia:  {name: "X-Cartesia-API-Key"},
}

// setAuthHeader applies the provider's credential header for the given key.
func setAuthHeader(set func(name, value string), p Provider, apiKey string) {
	if apiKey == "" {
		return
	}
	h, ok := authHeaders[p]
	if !ok {
		h = authHeader{name: "Authorization", prefix: "Bearer "}
	}
	set(h.name, h.prefix+apiKey)
}

// computeCost returns the USD cost of a call given the configuration's per-1k
// token prices. Zero when either price or the usage report is missing.
func computeCost(cfg Config, usage *Usage) float64 {
	if usage == nil || cfg.CostPer1kInput == 0 || cfg.CostPer1kOutput == 0 {
		return 0
	}
	return float64(usage.PromptTokens)*cfg.CostPer1kInput/1000 +
		float64(usage.CompletionTokens)*cfg.CostPer1kOutput/1000
}
