package newme

import (
	"math/rand"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

const longBreakDays = 7

// Greeting template buckets. [nickname] and [last topic] are interpolated;
// when no topic is known the whole clause carrying the placeholder is
// stripped so the sentence still reads naturally.
var greetingTemplates = struct {
	firstTime      []string
	returning      []string
	afterLongBreak []string
}{
	firstTime: []string{
		"Hey [nickname]... I'm NewMe. I'm so glad you're here. I've been waiting to meet you.",
		"Hi [nickname]! I'm NewMe, and I'm here for you—like, really here. Want to tell me a bit about what brought you here today?",
	},
	returning: []string{
		"Hey [nickname]! There you are. I was just thinking about our last conversation...",
		"[nickname]! Good to hear your voice again. You know what? I've been mulling over what you said last time...",
		"There's my favorite person. [nickname], how have you been since we last talked?",
	},
	afterLongBreak: []string{
		"[nickname]! It's been a minute. I missed our talks. What's been happening in your world?",
		"Hey [nickname], welcome back! It's been a while. Last time we talked, you were dealing with [last topic]. How did that turn out?",
	},
}

// reservedNicknames are the agent's own name and generic roles; a user
// carrying one is greeted as if they had no nickname at all.
var reservedNicknames = map[string]bool{
	"newme":   true,
	"newomen": true,
	"admin":   true,
	"user":    true,
}

var nicknameFolder = cases.Fold()

func isReservedNickname(nickname string) bool {
	return reservedNicknames[nicknameFolder.String(nickname)]
}

// Greeter selects session-opening greetings. The clock and the random source
// are injectable for tests.
type Greeter struct {
	overrides *Overrides
	randIntn  func(n int) int
	now       func() time.Time
}

// NewGreeter creates a greeter. overrides may be nil.
func NewGreeter(overrides *Overrides) *Greeter {
	return &Greeter{
		overrides: overrides,
		randIntn:  rand.Intn,
		now:       time.Now,
	}
}

// Greeting picks the opener for a session: an identity override when one
// matches, otherwise a random template from the bucket the user's history
// puts them in.
func (g *Greeter) Greeting(uc *UserContext, userID string) string {
	nickname := ""
	if uc != nil {
		nickname = uc.Nickname
	}

	if o := g.overrides.Find(userID, nickname); o != nil && o.Greeting != "" {
		return o.Greeting
	}

	if isReservedNickname(nickname) {
		nickname = ""
	}

	// Without a usable nickname or any prior conversation this is a
	// first-time interaction, whatever the history says.
	if nickname == "" || uc == nil || uc.LastConversationDate == nil {
		greeting := g.pick(greetingTemplates.firstTime)
		if nickname == "" {
			nickname = "there"
		}
		return strings.ReplaceAll(greeting, "[nickname]", nickname)
	}

	days := daysSince(uc.LastConversationDate, g.now())
	if days > longBreakDays {
		greeting := g.pick(greetingTemplates.afterLongBreak)
		greeting = strings.ReplaceAll(greeting, "[nickname]", nickname)
		if uc.LastConversationTopic != "" {
			return strings.ReplaceAll(greeting, "[last topic]", uc.LastConversationTopic)
		}
		greeting = strings.ReplaceAll(greeting, " about [last topic]", "")
		return strings.ReplaceAll(greeting, " dealing with [last topic]", "")
	}

	greeting := g.pick(greetingTemplates.returning)
	return strings.ReplaceAll(greeting, "[nickname]", nickname)
}

func (g *Greeter) pick(templates []string) string {
	return templates[g.randIntn(len(templates))]
}
