package dialogue

import (
	"context"
	"log/slog"
	"time"

	"github.com/docucast/docucast/internal/chunker"
	"github.com/docucast/docucast/internal/config"
	"github.com/docucast/docucast/internal/llm"
	"github.com/docucast/docucast/internal/retry"
)

// TurnGenerator converts one segment plus continuity context into a
// sequence of alternating speaker turns.
type TurnGenerator struct {
	gen     llm.Generator
	podcast config.PodcastConfig
	cfg     config.LLMConfig
	logger  *slog.Logger
}

func NewTurnGenerator(gen llm.Generator, podcast config.PodcastConfig, cfg config.LLMConfig, logger *slog.Logger) *TurnGenerator {
	return &TurnGenerator{
		gen:     gen,
		podcast: podcast,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "turn-generator")),
	}
}

// Generate produces the turns for seg. priorContext is the bounded
// conversation-so-far rendering, want the role expected to speak first.
// Transport failures are retried with backoff; unparseable output is
// regenerated once and then surfaced as MalformedOutputError.
func (g *TurnGenerator) Generate(ctx context.Context, seg chunker.Segment, totalSegments int, priorContext string, want Role) ([]Turn, error) {
	prompt := buildPrompt(g.podcast, seg.Text, priorContext, seg.Index, totalSegments)

	raw, err := g.complete(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{Segment: seg.Index, Err: err}
	}

	turns := parseDialogue(raw)
	if len(turns) == 0 {
		g.logger.Warn("unparseable model output, regenerating",
			slog.Int("segment", seg.Index))
		raw, err = g.complete(ctx, prompt)
		if err != nil {
			return nil, &GenerationError{Segment: seg.Index, Err: err}
		}
		turns = parseDialogue(raw)
		if len(turns) == 0 {
			return nil, &MalformedOutputError{Segment: seg.Index, Raw: raw}
		}
	}

	if !alternates(turns, want) {
		g.logger.Warn("alternation violated, regenerating once",
			slog.Int("segment", seg.Index))
		if retryRaw, retryErr := g.complete(ctx, prompt); retryErr == nil {
			if retryTurns := parseDialogue(retryRaw); alternates(retryTurns, want) {
				return retryTurns, nil
			}
		}
		turns = mergeSameRole(turns)
		if !alternates(turns, want) {
			turns = forceAlternate(turns, want)
		}
	}
	return turns, nil
}

// complete issues one bounded model call, retried on transport errors.
func (g *TurnGenerator) complete(ctx context.Context, prompt string) (string, error) {
	timeout := time.Duration(g.cfg.TimeoutMS) * time.Millisecond
	return retry.Do(ctx, g.cfg.MaxRetries, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		out, err := g.gen.Complete(callCtx, llm.Request{
			System:      "You write podcast dialogue scripts.",
			Prompt:      prompt,
			Temperature: g.cfg.Temperature(),
			MaxTokens:   g.cfg.MaxTokens,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", retry.Permanent(ctx.Err())
			}
			return "", err
		}
		return out, nil
	})
}
