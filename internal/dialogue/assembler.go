package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/docucast/docucast/internal/chunker"
	"github.com/docucast/docucast/internal/config"
)

// handoffLine keeps the alternation contract intact when the generated
// dialogue ends on a narrator turn and the closing message still has to
// be spoken by the narrator.
const handoffLine = "This was fascinating - thanks for walking us through it!"

// recapMaxChars bounds the running-summary portion of the continuity
// context fed to each generation call.
const recapMaxChars = 1200

// Assembler drives the chunker and turn generator across all segments,
// enforcing cross-chunk continuity. It owns the growing turn history
// exclusively and only ever appends to it.
type Assembler struct {
	chunks  *chunker.Chunker
	gen     *TurnGenerator
	podcast config.PodcastConfig
	window  int
	logger  *slog.Logger
}

// Result is the complete generated dialogue with its estimated-time
// transcript and the list of degraded units.
type Result struct {
	Turns      []Turn
	Transcript []Line
	Warnings   []string
}

func NewAssembler(chunks *chunker.Chunker, gen *TurnGenerator, podcast config.PodcastConfig, historyWindow int, logger *slog.Logger) *Assembler {
	return &Assembler{
		chunks:  chunks,
		gen:     gen,
		podcast: podcast,
		window:  historyWindow,
		logger:  logger.With(slog.String("component", "dialogue-assembler")),
	}
}

// Build generates the full dialogue for text. Segments are processed
// strictly in order: each chunk's opening must follow the previous
// chunk's closing line, so there is no intra-document concurrency.
// Cancellation is honored between segments, never mid-call.
func (a *Assembler) Build(ctx context.Context, text string, numChunks int) (*Result, error) {
	segments, err := a.chunks.Split(text, numChunks)
	if err != nil {
		return nil, err
	}

	history := []Turn{{
		Ordinal: 0,
		Role:    RoleNarrator,
		Text:    expandTemplate(a.podcast.OpeningMessage, a.podcast),
	}}
	var warnings []string

	for _, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		want := history[len(history)-1].Role.Other()
		turns, err := a.generateSegment(ctx, seg, len(segments), history, want)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			a.logger.Warn("segment skipped",
				slog.Int("segment", seg.Index),
				slog.String("error", err.Error()))
			warnings = append(warnings, fmt.Sprintf("segment %d skipped: %v", seg.Index, err))
			continue
		}
		for _, t := range turns {
			t.Ordinal = len(history)
			history = append(history, t)
		}
		a.logger.Info("segment dialogue generated",
			slog.Int("segment", seg.Index),
			slog.Int("turns", len(turns)))
	}

	if history[len(history)-1].Role == RoleNarrator {
		history = append(history, Turn{
			Ordinal: len(history),
			Role:    RoleQuestioner,
			Text:    handoffLine,
		})
	}
	history = append(history, Turn{
		Ordinal: len(history),
		Role:    RoleNarrator,
		Text:    expandTemplate(a.podcast.EndingMessage, a.podcast),
	})

	return &Result{
		Turns:      history,
		Transcript: renderLines(history, a.podcast.WordsPerMinute),
		Warnings:   warnings,
	}, nil
}

// generateSegment gives each segment one extra whole-segment attempt on
// top of the generator's own transport retries; a partial podcast beats
// none.
func (a *Assembler) generateSegment(ctx context.Context, seg chunker.Segment, total int, history []Turn, want Role) ([]Turn, error) {
	priorContext := a.continuityContext(history)
	turns, err := a.gen.Generate(ctx, seg, total, priorContext, want)
	if err == nil || ctx.Err() != nil {
		return turns, err
	}
	return a.gen.Generate(ctx, seg, total, priorContext, want)
}

// continuityContext renders the bounded prior-dialogue window: the last
// `window` turns verbatim, preceded by a capped recap of everything
// older, so per-call context size stays predictable on long documents.
func (a *Assembler) continuityContext(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	recent := history
	var b strings.Builder
	if len(history) > a.window {
		older := history[:len(history)-a.window]
		recent = history[len(history)-a.window:]
		b.WriteString("Recap of the conversation so far: ")
		b.WriteString(recapOf(older))
		b.WriteString("\n\n")
	}
	for _, t := range recent {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Text)
	}
	return b.String()
}

// recapOf is a cheap extractive summary: the first sentence of each
// older turn, oldest first, capped at recapMaxChars from the end so the
// most recent material survives truncation.
func recapOf(older []Turn) string {
	var parts []string
	for _, t := range older {
		parts = append(parts, firstSentence(t.Text))
	}
	recap := strings.Join(parts, " ")
	if len(recap) > recapMaxChars {
		cut := len(recap) - recapMaxChars
		for cut < len(recap) && !utf8.RuneStart(recap[cut]) {
			cut++
		}
		recap = "..." + recap[cut:]
	}
	return recap
}

func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return text[:i+1]
		}
	}
	return text
}
