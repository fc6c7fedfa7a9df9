package tts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docucast/docucast/internal/config"
	"github.com/docucast/docucast/internal/dialogue"
	"github.com/docucast/docucast/internal/retry"
)

// Renderer voices a complete dialogue, one bounded synthesis call per
// turn. Turn order is preserved; a turn whose synthesis keeps failing is
// rendered as silence proportional to its text length rather than
// aborting the podcast.
type Renderer struct {
	synth  Synthesizer
	cfg    config.TTSConfig
	wpm    int
	logger *slog.Logger
}

func NewRenderer(synth Synthesizer, cfg config.TTSConfig, wordsPerMinute int, logger *slog.Logger) *Renderer {
	return &Renderer{
		synth:  synth,
		cfg:    cfg,
		wpm:    wordsPerMinute,
		logger: logger.With(slog.String("component", "tts-renderer")),
	}
}

// RenderTurns synthesizes every turn in ordinal order. Cancellation is
// checked between turns, never mid-call. The returned warnings list one
// entry per silenced turn.
func (r *Renderer) RenderTurns(ctx context.Context, turns []dialogue.Turn) ([]Clip, []string, error) {
	clips := make([]Clip, 0, len(turns))
	var warnings []string

	for _, turn := range turns {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}

		clip, err := r.renderTurn(ctx, turn)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			synthErr := &SynthesisError{Turn: turn.Ordinal, Err: err}
			r.logger.Warn("turn degraded to silence",
				slog.Int("turn", turn.Ordinal),
				slog.String("error", err.Error()))
			warnings = append(warnings, fmt.Sprintf("turn %d silenced: %v", turn.Ordinal, synthErr.Err))
			clip = Silence(dialogue.EstimateSpeechDuration(turn.Text, r.wpm), r.cfg.SampleRate, r.cfg.Channels)
		}
		clip.TurnOrdinal = turn.Ordinal
		clips = append(clips, clip)
	}
	return clips, warnings, nil
}

func (r *Renderer) renderTurn(ctx context.Context, turn dialogue.Turn) (Clip, error) {
	profile := ProfileFor(r.cfg, turn.Role)
	instructions := profile.Instructions
	if turn.Tone != "" {
		instructions = turn.Tone
	}
	timeout := time.Duration(r.cfg.TimeoutMS) * time.Millisecond

	return retry.Do(ctx, r.cfg.MaxRetries, func() (Clip, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		clip, err := r.synth.Synthesize(callCtx, SynthRequest{
			Text:         turn.Text,
			Voice:        profile.Voice,
			Instructions: instructions,
		})
		if err != nil && ctx.Err() != nil {
			return Clip{}, retry.Permanent(ctx.Err())
		}
		return clip, err
	})
}
