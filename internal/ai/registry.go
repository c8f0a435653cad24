package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the loaded provider configurations and answers "which
// configuration serves which logical service". Resolution failures degrade
// to the default configuration silently: a missing AI mapping must not take
// the calling surface down.
type Registry struct {
	store ConfigStore

	mu      sync.RWMutex
	configs map[string]Config
	order   []string // load order, used for the last-resort default
}

// NewRegistry creates a registry over the given store. Call Load before use.
func NewRegistry(store ConfigStore) *Registry {
	return &Registry{
		store:   store,
		configs: make(map[string]Config),
	}
}

// Load fetches all active configurations and replaces the in-memory set
// atomically. On storage failure the previous state stays intact.
func (r *Registry) Load(ctx context.Context) error {
	rows, err := r.store.ListActive(ctx)
	if err != nil {
		slog.Warn("loading AI configurations failed, keeping previous set", "error", err)
		return fmt.Errorf("loading configurations: %w", err)
	}

	configs := make(map[string]Config, len(rows))
	order := make([]string, 0, len(rows))
	for _, cfg := range rows {
		configs[cfg.ID] = cfg
		order = append(order, cfg.ID)
	}

	r.mu.Lock()
	r.configs = configs
	r.order = order
	r.mu.Unlock()

	slog.Info("AI configurations loaded", "count", len(rows))
	return nil
}

// Get returns a configuration by id.
func (r *Registry) Get(id string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	return cfg, ok
}

// Default returns the configuration flagged as default, else the first
// loaded configuration, else nil.
func (r *Registry) Default() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if cfg := r.configs[id]; cfg.IsDefault {
			return &cfg
		}
	}
	if len(r.order) > 0 {
		cfg := r.configs[r.order[0]]
		return &cfg
	}
	return nil
}

// ForService resolves the best configuration for a logical service. Never
// returns an error: resolver failures and empty results fall back to
// Default, and an empty registry yields nil.
func (r *Registry) ForService(ctx context.Context, serviceType, serviceID string) *Config {
	cfg, err := r.store.ForService(ctx, serviceType, serviceID)
	if err != nil {
		slog.Warn("service configuration lookup failed, using default",
			"service_type", serviceType,
			"service_id", serviceID,
			"error", err,
		)
		return r.Default()
	}
	if cfg == nil {
		return r.Default()
	}
	return cfg
}

// Configurations returns all loaded configurations in load order.
func (r *Registry) Configurations() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.configs[id])
	}
	return out
}

// CreateConfiguration persists a new configuration and reloads the set.
func (r *Registry) CreateConfiguration(ctx context.Context, cfg Config) (string, error) {
	id, err := r.store.Create(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("creating configuration: %w", err)
	}
	_ = r.Load(ctx)
	return id, nil
}

// UpdateConfiguration persists changes to a configuration and reloads.
func (r *Registry) UpdateConfiguration(ctx context.Context, id string, cfg Config) error {
	if err := r.store.Update(ctx, id, cfg); err != nil {
		return fmt.Errorf("updating configuration: %w", err)
	}
	return r.Load(ctx)
}

// DeleteConfiguration removes a configuration and reloads.
func (r *Registry) DeleteConfiguration(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting configuration: %w", err)
	}
	return r.Load(ctx)
}
