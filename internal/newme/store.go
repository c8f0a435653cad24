package newme

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ContextStore produces the per-user context the agent opens a session with.
type ContextStore interface {
	// UserContext returns nil for users the agent has never met.
	UserContext(ctx context.Context, userID string) (*UserContext, error)
}

// ConversationStore persists conversations and their messages.
type ConversationStore interface {
	// Active returns the newest conversation without an end time, or nil.
	Active(ctx context.Context, userID string) (*Conversation, error)
	Create(ctx context.Context, userID string) (Conversation, error)
	AddMessage(ctx context.Context, conversationID, role, content string) error
	Messages(ctx context.Context, conversationID string, limit int) ([]Message, error)
	End(ctx context.Context, conversationID string) error
}

// MemoryContextStore is an in-memory ContextStore for development and tests.
type MemoryContextStore struct {
	mu       sync.RWMutex
	contexts map[string]UserContext
}

func NewMemoryContextStore() *MemoryContextStore {
	return &MemoryContextStore{contexts: make(map[string]UserContext)}
}

func (s *MemoryContextStore) Put(userID string, uc UserContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[userID] = uc
}

func (s *MemoryContextStore) UserContext(_ context.Context, userID string) (*UserContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uc, ok := s.contexts[userID]
	if !ok {
		return nil, nil
	}
	return &uc, nil
}

// MemoryConversationStore is an in-memory ConversationStore.
type MemoryConversationStore struct {
	mu            sync.Mutex
	conversations map[string]Conversation
	messages      map[string][]Message
	now           func() time.Time
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		conversations: make(map[string]Conversation),
		messages:      make(map[string][]Message),
		now:           time.Now,
	}
}

func (s *MemoryConversationStore) Active(_ context.Context, userID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active *Conversation
	for _, c := range s.conversations {
		if c.UserID != userID || c.EndedAt != nil {
			continue
		}
		if active == nil || c.StartedAt.After(active.StartedAt) {
			copied := c
			active = &copied
		}
	}
	return active, nil
}

func (s *MemoryConversationStore) Create(_ context.Context, userID string) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartedAt: s.now(),
	}
	s.conversations[c.ID] = c
	return c, nil
}

func (s *MemoryConversationStore) AddMessage(_ context.Context, conversationID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}
	s.messages[conversationID] = append(s.messages[conversationID], Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      s.now(),
	})
	c.MessageCount++
	s.conversations[conversationID] = c
	return nil
}

func (s *MemoryConversationStore) Messages(_ context.Context, conversationID string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append([]Message{}, s.messages[conversationID]...)
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *MemoryConversationStore) End(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}
	now := s.now()
	c.EndedAt = &now
	s.conversations[conversationID] = c
	return nil
}
