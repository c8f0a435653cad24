package ai

import (
	"context"
	"fmt"
)

// VoiceAdapter handles synthesis providers (ElevenLabs, Cartesia, Deepgram,
// Hume). These produce media, not text completions: the adapter acknowledges
// the request and hands back an opaque media reference for the caller's
// playback pipeline. Voice results are never cached or retried by the
// gateway.
type VoiceAdapter struct{}

// NewVoiceAdapter creates the synthesis placeholder adapter.
func NewVoiceAdapter() *VoiceAdapter {
	return &VoiceAdapter{}
}

func (a *VoiceAdapter) Call(_ context.Context, cfg Config, prompt string) (Response, error) {
	if !cfg.Provider.IsVoice() {
		return Response{}, fmt.Errorf("voice adapter cannot serve provider %q", cfg.Provider)
	}
	return Response{
		Success:  true,
		Content:  fmt.Sprintf("voice synthesis accepted by %s (%d chars)", cfg.Provider, len(prompt)),
		MediaRef: fmt.Sprintf("%s:%s", cfg.Provider, cfg.Model),
	}, nil
}
