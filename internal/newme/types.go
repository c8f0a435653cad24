// Package newme implements the NewMe conversational agent: user context and
// memory, greeting selection and response generation over the AI gateway.
package newme

import (
	"math"
	"time"
)

// Memory is one fact the agent remembers about a user.
type Memory struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// UserContext is everything the agent knows about a user when a session
// starts. Produced by the context store; absent facts stay zero-valued and
// are omitted from the prompt.
type UserContext struct {
	Nickname              string     `json:"nickname,omitempty"`
	LastConversationDate  *time.Time `json:"last_conversation_date,omitempty"`
	LastConversationTopic string     `json:"last_conversation_topic,omitempty"`
	EmotionalPatterns     []string   `json:"emotional_patterns,omitempty"`
	CompletedAssessments  []string   `json:"completed_assessments,omitempty"`
	ImportantMemories     []Memory   `json:"important_memories,omitempty"`
}

// Conversation is one NewMe session.
type Conversation struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	MessageCount int        `json:"message_count"`
}

// Message is one turn inside a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // user or assistant
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// noConversationSentinel stands in for "never spoke before" in day math.
const noConversationSentinel = 999

// daysSince reports whole days since the last conversation, rounding up, or
// the sentinel when there was none.
func daysSince(last *time.Time, now time.Time) int {
	if last == nil {
		return noConversationSentinel
	}
	diff := now.Sub(*last)
	if diff < 0 {
		diff = -diff
	}
	return int(math.Ceil(diff.Hours() / 24))
}
