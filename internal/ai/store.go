package ai

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ConfigStore persists provider configurations and resolves the
// service-to-configuration mapping.
type ConfigStore interface {
	// ListActive returns all active configuration rows.
	ListActive(ctx context.Context) ([]Config, error)
	// ForService resolves the configuration mapped to a logical service
	// (e.g. "assessment_scoring") and optional entity id. Returns nil when
	// no mapping exists.
	ForService(ctx context.Context, serviceType, serviceID string) (*Config, error)
	Create(ctx context.Context, cfg Config) (string, error)
	Update(ctx context.Context, id string, cfg Config) error
	Delete(ctx context.Context, id string) error
}

// MemoryConfigStore is an in-memory ConfigStore for development and tests.
type MemoryConfigStore struct {
	mu       sync.RWMutex
	configs  map[string]Config
	order    []string
	services map[string]string // serviceType or serviceType/serviceID -> config id

	// ListErr and ServiceErr inject failures in tests.
	ListErr    error
	ServiceErr error
}

// NewMemoryConfigStore creates an empty in-memory store.
func NewMemoryConfigStore() *MemoryConfigStore {
	return &MemoryConfigStore{
		configs:  make(map[string]Config),
		services: make(map[string]string),
	}
}

// MapService binds a logical service (and optional entity id) to a
// configuration id.
func (s *MemoryConfigStore) MapService(serviceType, serviceID, configID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[serviceKey(serviceType, serviceID)] = configID
}

func (s *MemoryConfigStore) ListActive(_ context.Context) ([]Config, error) {
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Config, 0, len(s.order))
	for _, id := range s.order {
		cfg := s.configs[id]
		if cfg.IsActive {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (s *MemoryConfigStore) ForService(_ context.Context, serviceType, serviceID string) (*Config, error) {
	if s.ServiceErr != nil {
		return nil, s.ServiceErr
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.services[serviceKey(serviceType, serviceID)]
	if !ok {
		id, ok = s.services[serviceKey(serviceType, "")]
	}
	if !ok {
		return nil, nil
	}
	cfg, ok := s.configs[id]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (s *MemoryConfigStore) Create(_ context.Context, cfg Config) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if _, exists := s.configs[cfg.ID]; exists {
		return "", fmt.Errorf("configuration already exists: %s", cfg.ID)
	}
	s.configs[cfg.ID] = cfg
	s.order = append(s.order, cfg.ID)
	return cfg.ID, nil
}

func (s *MemoryConfigStore) Update(_ context.Context, id string, cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[id]; !ok {
		return fmt.Errorf("configuration not found: %s", id)
	}
	cfg.ID = id
	s.configs[id] = cfg
	return nil
}

func (s *MemoryConfigStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[id]; !ok {
		return fmt.Errorf("configuration not found: %s", id)
	}
	delete(s.configs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func serviceKey(serviceType, serviceID string) string {
	if serviceID == "" {
		return serviceType
	}
	return serviceType + "/" + serviceID
}
