package audio

import (
	"strings"

	"github.com/apresai/podcastos/internal/model"
	"github.com/apresai/podcastos/internal/tts"
)

// VoiceResolver builds the speaker-to-voice lookup Render needs from a
// profile's hosts and a provider's default voice slots. A host's explicit
// VoiceID (if set) wins; otherwise the host falls back to the provider's
// Host1/Host2/Host3 default, assigned in profile order.
func VoiceResolver(profile model.Profile, provider tts.Provider) func(speaker string) tts.Voice {
	defaults := provider.DefaultVoices()
	slots := []tts.Voice{defaults.Host1, defaults.Host2, defaults.Host3}

	byName := make(map[string]tts.Voice, len(profile.Hosts))
	for i, h := range profile.Hosts {
		voice := tts.Voice{Name: h.Name, Provider: provider.Name()}
		switch {
		case h.VoiceID != "":
			voice.ID = h.VoiceID
		case i < len(slots):
			voice.ID = slots[i].ID
		}
		byName[strings.ToLower(h.Name)] = voice
	}

	return func(speaker string) tts.Voice {
		if v, ok := byName[strings.ToLower(strings.TrimSpace(speaker))]; ok {
			return v
		}
		// Unknown speaker (shouldn't happen after synth's remap-to-first-host
		// normalization): fall back to the provider's first default voice.
		return defaults.Host1
	}
}
