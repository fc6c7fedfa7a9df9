package dialogue

import (
	"fmt"
	"strings"
	"time"

	"github.com/docucast/docucast/internal/config"
)

// renderLines assigns each turn a monotonically increasing display
// offset derived from estimated speech duration. Purely for the text
// transcript; audio assembly recomputes offsets from real durations.
func renderLines(turns []Turn, wordsPerMinute int) []Line {
	lines := make([]Line, 0, len(turns))
	var offset time.Duration
	for _, t := range turns {
		lines = append(lines, Line{Offset: offset, Role: t.Role, Text: t.Text})
		offset += EstimateSpeechDuration(t.Text, wordsPerMinute)
	}
	return lines
}

// EstimateSpeechDuration approximates how long text takes to speak at
// the configured pace.
func EstimateSpeechDuration(text string, wordsPerMinute int) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return time.Duration(float64(words) / float64(wordsPerMinute) * float64(time.Minute))
}

// FormatTranscript renders lines as the plain-text transcript artifact.
func FormatTranscript(cfg config.PodcastConfig, lines []Line) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s ===\n%s\n\n", cfg.Name, cfg.Tagline)
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n\n")
	for _, line := range lines {
		total := int(line.Offset.Round(time.Second).Seconds())
		fmt.Fprintf(&b, "[%02d:%02d] %s: %s\n\n", total/60, total%60, line.Role, line.Text)
	}
	return b.String()
}
