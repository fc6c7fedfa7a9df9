package dialogue

import (
	"fmt"
	"strings"

	"github.com/docucast/docucast/internal/config"
)

// sectionLabel names the part of the show a chunk belongs to, so the
// model writes an intro-shaped or outro-shaped conversation where it
// should.
func sectionLabel(index, total int) string {
	switch {
	case total == 1:
		return "full podcast"
	case index == 0:
		return "Introduction"
	case index == total-1:
		return "Conclusion"
	default:
		return fmt.Sprintf("Main Content Part %d", index)
	}
}

// buildPrompt embeds the segment text, the continuity context and the
// configured conversational shape into one generation prompt. The model
// is asked for a strict JSON dialogue so parsing stays mechanical.
func buildPrompt(cfg config.PodcastConfig, segmentText, context string, index, total int) string {
	style := strings.Join(cfg.ConversationStyle, ", ")
	techniques := strings.Join(cfg.EngagementTechniques, ", ")

	var b strings.Builder
	fmt.Fprintf(&b, "You are creating a podcast dialogue for %q - %s.\n\n", cfg.Name, cfg.Tagline)
	fmt.Fprintf(&b, "Generate a %s conversation between two speakers for the %s section.\n\n", style, sectionLabel(index, total))
	b.WriteString("SPEAKER ROLES:\n")
	fmt.Fprintf(&b, "- narrator: %s\n", cfg.NarratorPersona)
	fmt.Fprintf(&b, "- questioner: %s\n\n", cfg.QuestionerPersona)
	fmt.Fprintf(&b, "ENGAGEMENT TECHNIQUES TO USE:\n%s\n\n", techniques)
	b.WriteString("CONVERSATION GUIDELINES:\n")
	b.WriteString("1. Keep the dialogue natural and conversational\n")
	b.WriteString("2. Break down complex concepts into digestible explanations\n")
	fmt.Fprintf(&b, "3. Use %s tone throughout\n", style)
	b.WriteString("4. The questioner should ask clarifying questions to help listeners understand\n")
	b.WriteString("5. Include transitions between topics\n")
	b.WriteString("6. Keep each speaker's turn to 2-4 sentences maximum\n")
	b.WriteString("7. Strictly alternate between the two speakers\n\n")
	if cfg.UserInstructions != "" {
		fmt.Fprintf(&b, "ADDITIONAL INSTRUCTIONS: %s\n\n", cfg.UserInstructions)
	}
	if context != "" {
		fmt.Fprintf(&b, "THE CONVERSATION SO FAR (continue naturally from it, do not repeat it):\n%s\n\n", context)
	}
	fmt.Fprintf(&b, "SOURCE CONTENT:\n%s\n\n", segmentText)
	b.WriteString("Generate the dialogue in this JSON format:\n")
	b.WriteString(`{"dialogue": [{"speaker": "narrator", "text": "..."}, {"speaker": "questioner", "text": "..."}]}`)
	b.WriteString("\n\nReturn ONLY the JSON, no additional text.")
	return b.String()
}

// expandTemplate substitutes the show identity placeholders used by the
// opening and ending message templates.
func expandTemplate(tmpl string, cfg config.PodcastConfig) string {
	out := strings.ReplaceAll(tmpl, "{name}", cfg.Name)
	return strings.ReplaceAll(out, "{tagline}", cfg.Tagline)
}
