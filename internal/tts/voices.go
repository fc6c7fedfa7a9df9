package tts

import (
	"fmt"

	"github.com/docucast/docucast/internal/config"
	"github.com/docucast/docucast/internal/dialogue"
)

// VoiceProfile is the provider voice and delivery instruction for one
// speaker role, looked up at synthesis time.
type VoiceProfile struct {
	Voice        string
	Instructions string
}

// ProfileFor maps a role to its configured voice profile.
func ProfileFor(cfg config.TTSConfig, role dialogue.Role) VoiceProfile {
	vc := cfg.Narrator
	if role == dialogue.RoleQuestioner {
		vc = cfg.Questioner
	}
	return VoiceProfile{Voice: vc.Voice, Instructions: vc.Instructions}
}

// UnsupportedVoiceError is a configuration-time failure: the selected
// provider does not offer the requested voice.
type UnsupportedVoiceError struct {
	Provider string
	Voice    string
}

func (e *UnsupportedVoiceError) Error() string {
	return fmt.Sprintf("voice %q is not supported by tts provider %q", e.Voice, e.Provider)
}

// openaiVoices is the fixed voice catalogue of the OpenAI speech API.
var openaiVoices = map[string]bool{
	"alloy": true, "ash": true, "ballad": true, "coral": true,
	"echo": true, "fable": true, "onyx": true, "nova": true,
	"sage": true, "shimmer": true, "verse": true,
}

// ValidateVoices fails fast on voices the selected provider cannot
// serve. ElevenLabs and exec voices are account- or engine-specific, so
// only presence can be checked for those.
func ValidateVoices(cfg config.TTSConfig) error {
	for _, voice := range []string{cfg.Narrator.Voice, cfg.Questioner.Voice} {
		if voice == "" {
			return &UnsupportedVoiceError{Provider: cfg.Provider, Voice: voice}
		}
		if cfg.Provider == "openai" && !openaiVoices[voice] {
			return &UnsupportedVoiceError{Provider: cfg.Provider, Voice: voice}
		}
	}
	return nil
}
