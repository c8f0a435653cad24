package newme

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxEmotionalPatterns = 3
	maxMemories          = 3
)

// buildContextBlock renders the user-context section appended to the system
// prompt. Absent facts produce no line at all; an empty context produces an
// empty string. Plain string concatenation on purpose: several providers take
// one flattened prompt, not a message array. extra lines (identity
// overrides) come first.
func buildContextBlock(uc *UserContext, now time.Time, extra []string) string {
	if uc == nil && len(extra) == 0 {
		return ""
	}
	lines := append([]string{}, extra...)
	if uc == nil {
		uc = &UserContext{}
	}

	if uc.Nickname != "" {
		lines = append(lines, fmt.Sprintf("- User's preferred nickname: %s", uc.Nickname))
	}
	if uc.LastConversationDate != nil {
		switch days := daysSince(uc.LastConversationDate, now); {
		case days == 0:
			lines = append(lines, "- You spoke with them earlier today. Pick up the thread naturally as if no time has passed.")
		case days == 1:
			lines = append(lines, "- It has been 1 day since your last conversation. Acknowledge the brief gap with warmth.")
		case days < noConversationSentinel:
			lines = append(lines, fmt.Sprintf("- It has been %d days since you last spoke. Mention this gap with affection when you greet them.", days))
		}
	}
	if uc.LastConversationTopic != "" {
		lines = append(lines, fmt.Sprintf("- Last conversation topic: %s. Reference it in your opening memory weave.", uc.LastConversationTopic))
	}
	if len(uc.EmotionalPatterns) > 0 {
		patterns := uc.EmotionalPatterns
		if len(patterns) > maxEmotionalPatterns {
			patterns = patterns[:maxEmotionalPatterns]
		}
		lines = append(lines, fmt.Sprintf("- Recurring emotional themes to keep in mind: %s.", strings.Join(patterns, ", ")))
	}
	if len(uc.CompletedAssessments) > 0 {
		lines = append(lines, fmt.Sprintf("- They have completed these assessments: %s. Use them to ground insights.", strings.Join(uc.CompletedAssessments, ", ")))
	}
	if len(uc.ImportantMemories) > 0 {
		memories := uc.ImportantMemories
		if len(memories) > maxMemories {
			memories = memories[:maxMemories]
		}
		snippets := make([]string, len(memories))
		for i, m := range memories {
			snippets[i] = fmt.Sprintf("%s: %s", m.Type, m.Value)
		}
		lines = append(lines, fmt.Sprintf("- Important memories to naturally weave into conversation: %s.", strings.Join(snippets, "; ")))
	}

	if len(lines) == 0 {
		return ""
	}
	return "\n\n### CURRENT USER CONTEXT:\n" + strings.Join(lines, "\n")
}
