package newme

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/newomen/newomen-ai/internal/ai"
)

// ServiceVoiceConversation is the logical service NewMe resolves its
// configuration under.
const ServiceVoiceConversation = "voice_conversation"

// Turn is one prior exchange handed in by the caller.
type Turn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// Gateway is the slice of the AI gateway the agent needs.
type Gateway interface {
	Generate(ctx context.Context, req ai.Request) ai.Response
}

// Registry resolves provider configurations for the agent.
type Registry interface {
	ForService(ctx context.Context, serviceType, serviceID string) *ai.Config
}

// Service is the NewMe conversational agent.
type Service struct {
	gateway       Gateway
	registry      Registry
	contexts      ContextStore
	conversations ConversationStore
	greeter       *Greeter
	overrides     *Overrides
	now           func() time.Time
}

// NewService assembles the agent. overrides may be nil.
func NewService(gateway Gateway, registry Registry, contexts ContextStore, conversations ConversationStore, overrides *Overrides) *Service {
	return &Service{
		gateway:       gateway,
		registry:      registry,
		contexts:      contexts,
		conversations: conversations,
		greeter:       NewGreeter(overrides),
		overrides:     overrides,
		now:           time.Now,
	}
}

// GenerateResponse runs one conversational turn: resolve the agent
// configuration, build the flattened prompt from context and history, call
// the gateway, and persist both sides of the exchange. The returned
// conversation id identifies the session the turn was recorded under; it is
// empty when no conversation could be established.
func (s *Service) GenerateResponse(ctx context.Context, userID, message string, history []Turn, conversationID string) (ai.Response, string) {
	started := time.Now()

	cfg := s.registry.ForService(ctx, ServiceVoiceConversation, "")
	if cfg == nil {
		return ai.Response{
			Success:          false,
			Error:            "NewMe Voice Agent configuration not found",
			ProcessingTimeMS: time.Since(started).Milliseconds(),
		}, ""
	}

	conversationID = s.ensureConversation(ctx, userID, conversationID)

	uc, err := s.contexts.UserContext(ctx, userID)
	if err != nil {
		slog.Warn("loading user context failed", "user_id", userID, "error", err)
		uc = nil
	}

	resp := s.gateway.Generate(ctx, ai.Request{
		Service:     ServiceVoiceConversation,
		UserID:      userID,
		ConfigID:    cfg.ID,
		Prompt:      s.buildPrompt(uc, userID, history, message),
		ContentType: "conversation",
		ContentID:   conversationID,
	})

	if resp.Success && conversationID != "" {
		if err := s.conversations.AddMessage(ctx, conversationID, "user", message); err != nil {
			slog.Warn("recording user message failed", "conversation_id", conversationID, "error", err)
		} else if resp.Content != "" {
			if err := s.conversations.AddMessage(ctx, conversationID, "assistant", resp.Content); err != nil {
				slog.Warn("recording assistant message failed", "conversation_id", conversationID, "error", err)
			}
		}
	}

	return resp, conversationID
}

// Greeting returns the opener for a new session. Storage failures degrade to
// the first-time greeting rather than erroring.
func (s *Service) Greeting(ctx context.Context, userID string) string {
	uc, err := s.contexts.UserContext(ctx, userID)
	if err != nil {
		slog.Warn("loading user context for greeting failed", "user_id", userID, "error", err)
		uc = nil
	}
	return s.greeter.Greeting(uc, userID)
}

// ensureConversation returns the session to record this turn under: the one
// the caller pinned, the user's active session, or a fresh one. Persistence
// failures leave the turn unrecorded but never block the response.
func (s *Service) ensureConversation(ctx context.Context, userID, conversationID string) string {
	if conversationID != "" {
		return conversationID
	}

	active, err := s.conversations.Active(ctx, userID)
	if err != nil {
		slog.Warn("looking up active conversation failed", "user_id", userID, "error", err)
		return ""
	}
	if active != nil {
		return active.ID
	}

	created, err := s.conversations.Create(ctx, userID)
	if err != nil {
		slog.Warn("creating conversation failed", "user_id", userID, "error", err)
		return ""
	}
	return created.ID
}

// buildPrompt flattens context, history and the current message into the
// single prompt string the adapters send. The configuration's system prompt
// travels separately as the provider's system message.
func (s *Service) buildPrompt(uc *UserContext, userID string, history []Turn, message string) string {
	var extra []string
	nickname := ""
	if uc != nil {
		nickname = uc.Nickname
	}
	if o := s.overrides.Find(userID, nickname); o != nil {
		extra = o.ContextLines
	}

	var b strings.Builder
	b.WriteString(buildContextBlock(uc, s.now(), extra))
	b.WriteString("\n\n")
	if len(history) > 0 {
		b.WriteString("### CONVERSATION HISTORY:\n")
		for _, turn := range history {
			b.WriteString(strings.ToUpper(turn.Role))
			b.WriteString(": ")
			b.WriteString(turn.Content)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("### CURRENT USER MESSAGE:\nUSER: ")
	b.WriteString(message)
	b.WriteString("\n\nRespond as NewMe, staying fully in character:")
	return b.String()
}
