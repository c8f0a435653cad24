package ai

import (
	"context"
	"sync"
)

// MockAdapter is a test double that records calls for inspection.
type MockAdapter struct {
	Response Response
	Err      error

	mu         sync.Mutex
	calls      int
	LastConfig Config
	LastPrompt string
}

// NewMockAdapter creates a MockAdapter returning the given content.
func NewMockAdapter(content string) *MockAdapter {
	return &MockAdapter{
		Response: Response{
			Success: true,
			Content: content,
			Usage:   &Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		},
	}
}

func (m *MockAdapter) Call(_ context.Context, cfg Config, prompt string) (Response, error) {
	m.mu.Lock()
	m.calls++
	m.LastConfig = cfg
	m.LastPrompt = prompt
	m.mu.Unlock()

	if m.Err != nil {
		return Response{}, m.Err
	}
	resp := m.Response
	resp.CostUSD = computeCost(cfg, resp.Usage)
	return resp, nil
}

// Calls returns how many times the adapter was invoked.
func (m *MockAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
