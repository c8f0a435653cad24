package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/newomen/newomen-ai/internal/usage"
)

// Request is one call into the gateway. Service names the logical caller
// ("assessment_scoring", "voice_conversation", ...) and drives configuration
// resolution unless ConfigID pins an exact configuration. Payload, when set,
// keys the response cache; calls without a payload are never cached.
type Request struct {
	Service     string
	ServiceID   string
	UserID      string
	ConfigID    string
	Prompt      string
	Payload     any
	ContentType string
	ContentID   string
}

// Gateway runs the full call pipeline: resolve configuration, rate limit,
// consult the cache, dispatch to the provider adapter, price the result and
// record usage. It never returns an error to callers; every failure becomes a
// Response with Success=false and a stable Error string.
type Gateway struct {
	registry *Registry
	adapters map[Provider]Adapter
	limiter  *RateLimiter
	cache    ResponseCache
	usage    usage.Logger

	defaultTimeout time.Duration
}

// GatewayOptions configures optional gateway collaborators.
type GatewayOptions struct {
	// Cache enables response caching; nil disables it.
	Cache ResponseCache
	// Usage receives every terminal outcome; nil defaults to NopLogger.
	Usage usage.Logger
	// DefaultTimeoutMS bounds calls whose configuration has no timeout of
	// its own. Zero means 30000.
	DefaultTimeoutMS int
}

// NewGateway assembles a gateway over the given registry, adapters and
// limiter.
func NewGateway(registry *Registry, adapters map[Provider]Adapter, limiter *RateLimiter, opts GatewayOptions) *Gateway {
	var logger usage.Logger = usage.NopLogger{}
	if opts.Usage != nil {
		logger = opts.Usage
	}
	timeout := time.Duration(opts.DefaultTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Gateway{
		registry:       registry,
		adapters:       adapters,
		limiter:        limiter,
		cache:          opts.Cache,
		usage:          logger,
		defaultTimeout: timeout,
	}
}

// DefaultAdapters returns the standard adapter set: the OpenAI-shaped adapter
// for openai, azure and custom backends, the native Anthropic and Google
// adapters, and the voice adapter for synthesis providers.
func DefaultAdapters(client *http.Client) map[Provider]Adapter {
	openAI := NewOpenAIAdapter(client)
	voice := NewVoiceAdapter()
	return map[Provider]Adapter{
		ProviderOpenAI:     openAI,
		ProviderAzure:      openAI,
		ProviderCustom:     openAI,
		ProviderAnthropic:  NewAnthropicAdapter(client),
		ProviderGoogle:     NewGoogleAdapter(client),
		ProviderElevenLabs: voice,
		ProviderCartesia:   voice,
		ProviderDeepgram:   voice,
		ProviderHume:       voice,
	}
}

// Generate executes one AI call end to end.
func (g *Gateway) Generate(ctx context.Context, req Request) Response {
	started := time.Now()

	cfg := g.resolveConfig(ctx, req)
	if cfg == nil {
		return g.finish(ctx, req, nil, Response{
			Success:          false,
			Error:            "No suitable AI configuration found",
			ProcessingTimeMS: time.Since(started).Milliseconds(),
		})
	}

	if g.limiter != nil && !g.limiter.Allow(req.UserID) {
		slog.Warn("rate limit exceeded", "user_id", req.UserID, "service", req.Service)
		return g.finish(ctx, req, cfg, Response{
			Success:          false,
			Error:            "Rate limit exceeded",
			ProcessingTimeMS: time.Since(started).Milliseconds(),
		})
	}

	cacheable := g.cache != nil && req.Payload != nil && !cfg.Provider.IsVoice()
	var cacheKey string
	if cacheable {
		cacheKey = CacheKey(req.Service, req.UserID, req.Payload)
		if cached, ok := g.cache.Get(ctx, cacheKey); ok {
			slog.Debug("response cache hit", "service", req.Service, "user_id", req.UserID)
			cached.ProcessingTimeMS = time.Since(started).Milliseconds()
			return g.finish(ctx, req, cfg, cached)
		}
	}

	adapter, ok := g.adapters[cfg.Provider]
	if !ok {
		slog.Error("no adapter for provider", "provider", cfg.Provider, "config_id", cfg.ID)
		return g.finish(ctx, req, cfg, Response{
			Success:          false,
			Error:            "Unsupported AI provider: " + string(cfg.Provider),
			ProcessingTimeMS: time.Since(started).Milliseconds(),
		})
	}

	timeout := g.defaultTimeout
	if cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := adapter.Call(callCtx, *cfg, req.Prompt)
	resp.ProcessingTimeMS = time.Since(started).Milliseconds()
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			msg = "timeout"
		}
		slog.Warn("provider call failed",
			"provider", cfg.Provider,
			"config_id", cfg.ID,
			"error", err,
		)
		return g.finish(ctx, req, cfg, Response{
			Success:          false,
			Error:            msg,
			ProcessingTimeMS: resp.ProcessingTimeMS,
		})
	}

	if cacheable && resp.Success {
		g.cache.Set(ctx, cacheKey, resp)
	}
	return g.finish(ctx, req, cfg, resp)
}

// resolveConfig picks the configuration for a request: an explicit ConfigID
// wins, otherwise the service mapping decides, falling back to the default.
func (g *Gateway) resolveConfig(ctx context.Context, req Request) *Config {
	if req.ConfigID != "" {
		if cfg, ok := g.registry.Get(req.ConfigID); ok {
			return &cfg
		}
		slog.Warn("pinned configuration not loaded, resolving by service",
			"config_id", req.ConfigID, "service", req.Service)
	}
	if req.Service != "" {
		return g.registry.ForService(ctx, req.Service, req.ServiceID)
	}
	return g.registry.Default()
}

// finish records the outcome and hands the response back.
func (g *Gateway) finish(ctx context.Context, req Request, cfg *Config, resp Response) Response {
	entry := usage.Entry{
		UserID:       req.UserID,
		ContentType:  req.ContentType,
		ContentID:    req.ContentID,
		CostUSD:      resp.CostUSD,
		Success:      resp.Success,
		ErrorMessage: resp.Error,
		CreatedAt:    time.Now(),
	}
	if cfg != nil {
		entry.ConfigID = cfg.ID
		entry.ConfigName = cfg.Name
		entry.Provider = string(cfg.Provider)
		entry.Model = cfg.Model
	}
	if resp.Usage != nil {
		entry.PromptTokens = resp.Usage.PromptTokens
		entry.CompletionTokens = resp.Usage.CompletionTokens
		entry.TotalTokens = resp.Usage.TotalTokens
	}
	if err := g.usage.Log(ctx, entry); err != nil {
		slog.Warn("recording usage failed", "user_id", req.UserID, "error", err)
	}
	return resp
}
