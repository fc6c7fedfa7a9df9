// Package pipeline orchestrates a single document's journey from raw
// text to podcast artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/docucast/docucast/internal/audio"
	"github.com/docucast/docucast/internal/chunker"
	"github.com/docucast/docucast/internal/config"
	"github.com/docucast/docucast/internal/dialogue"
	"github.com/docucast/docucast/internal/llm"
	"github.com/docucast/docucast/internal/tts"
)

// Request is one document to convert. Name is the artifact base name,
// usually the source file stem. NumChunks of zero lets the chunker pick
// a count from document length.
type Request struct {
	Name      string
	Text      string
	NumChunks int
}

// Result describes a finished run. AudioPath is empty when synthesis is
// disabled. Warnings is never nil.
type Result struct {
	RunID          string
	Turns          []dialogue.Turn
	TranscriptPath string
	DialoguePath   string
	AudioPath      string
	Duration       time.Duration
	Warnings       []string
}

// Pipeline holds the stage components for the lifetime of the process;
// per-document state lives entirely in Process.
type Pipeline struct {
	cfg       config.Config
	assembler *dialogue.Assembler
	renderer  *tts.Renderer
	logger    *slog.Logger
	tracer    trace.Tracer
}

// New builds all stages from config. Provider and voice problems
// surface here, before any document is touched.
func New(cfg config.Config, logger *slog.Logger) (*Pipeline, error) {
	gen, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm backend: %w", err)
	}
	turnGen := dialogue.NewTurnGenerator(gen, cfg.Podcast, cfg.LLM, logger)
	assembler := dialogue.NewAssembler(chunker.New(cfg.Chunking), turnGen, cfg.Podcast, cfg.LLM.HistoryWindow, logger)

	var renderer *tts.Renderer
	if cfg.TTS.Enabled {
		synth, err := tts.New(cfg.TTS)
		if err != nil {
			return nil, fmt.Errorf("tts provider: %w", err)
		}
		renderer = tts.NewRenderer(synth, cfg.TTS, cfg.Podcast.WordsPerMinute, logger)
	}

	return &Pipeline{
		cfg:       cfg,
		assembler: assembler,
		renderer:  renderer,
		logger:    logger.With(slog.String("component", "pipeline")),
		tracer:    otel.Tracer("docucast/pipeline"),
	}, nil
}

// Process runs the full conversion. Artifacts are written only after
// every stage has finished, so a cancelled run leaves no partial files
// behind.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	ctx, span := p.tracer.Start(ctx, "pipeline.process",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("document.name", req.Name),
		))
	defer span.End()

	logger := p.logger.With(slog.String("run_id", runID), slog.String("document", req.Name))
	logger.Info("run started", slog.Int("document_bytes", len(req.Text)))

	dial, err := p.buildDialogue(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dialogue generation failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("dialogue.turns", len(dial.Turns)))

	lines := dial.Transcript
	warnings := dial.Warnings
	duration := estimatedDuration(dial.Turns, p.cfg.Podcast.WordsPerMinute)

	var stitched *audio.Stitched
	if p.renderer != nil {
		stitched, warnings, err = p.renderAudio(ctx, dial.Turns, warnings)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "audio rendering failed")
			return nil, err
		}
		lines = stitched.Lines
		duration = stitched.Duration
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:    runID,
		Turns:    dial.Turns,
		Duration: duration,
		Warnings: warnings,
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	if err := p.writeArtifacts(req.Name, lines, stitched, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "artifact write failed")
		return nil, err
	}

	logger.Info("run finished",
		slog.Int("turns", len(res.Turns)),
		slog.Duration("duration", res.Duration),
		slog.Int("warnings", len(res.Warnings)))
	return res, nil
}

func (p *Pipeline) buildDialogue(ctx context.Context, req Request) (*dialogue.Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.dialogue")
	defer span.End()
	return p.assembler.Build(ctx, req.Text, req.NumChunks)
}

func (p *Pipeline) renderAudio(ctx context.Context, turns []dialogue.Turn, warnings []string) (*audio.Stitched, []string, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.synthesis")
	defer span.End()

	clips, ttsWarnings, err := p.renderer.RenderTurns(ctx, turns)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, ttsWarnings...)

	gap := time.Duration(p.cfg.TTS.GapMS) * time.Millisecond
	stitched, err := audio.Stitch(clips, turns, gap)
	if err != nil {
		return nil, nil, err
	}
	span.SetAttributes(attribute.Int("audio.clips", len(clips)))
	return stitched, warnings, nil
}

// writeArtifacts persists transcript, dialogue JSON, and audio. Paths
// are recorded on res as each file lands.
func (p *Pipeline) writeArtifacts(name string, lines []dialogue.Line, stitched *audio.Stitched, res *Result) error {
	if err := os.MkdirAll(p.cfg.Output.TranscriptDir, 0o755); err != nil {
		return fmt.Errorf("create transcript dir: %w", err)
	}
	res.TranscriptPath = filepath.Join(p.cfg.Output.TranscriptDir, name+"_podcast_transcript.txt")
	transcript := dialogue.FormatTranscript(p.cfg.Podcast, lines)
	if err := os.WriteFile(res.TranscriptPath, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	if err := os.MkdirAll(p.cfg.Output.DialogueDir, 0o755); err != nil {
		return fmt.Errorf("create dialogue dir: %w", err)
	}
	res.DialoguePath = filepath.Join(p.cfg.Output.DialogueDir, name+"_podcast_dialogue.json")
	if err := writeDialogueJSON(res.DialoguePath, res.RunID, res.Turns); err != nil {
		return err
	}

	if stitched != nil {
		if err := os.MkdirAll(p.cfg.Output.AudioDir, 0o755); err != nil {
			return fmt.Errorf("create audio dir: %w", err)
		}
		res.AudioPath = filepath.Join(p.cfg.Output.AudioDir, name+"_podcast.wav")
		if err := audio.WriteWAV(res.AudioPath, stitched); err != nil {
			return err
		}
	}
	return nil
}

type dialogueEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

type dialogueDoc struct {
	RunID    string          `json:"run_id"`
	Dialogue []dialogueEntry `json:"dialogue"`
}

func writeDialogueJSON(path, runID string, turns []dialogue.Turn) error {
	doc := dialogueDoc{RunID: runID, Dialogue: make([]dialogueEntry, 0, len(turns))}
	for _, t := range turns {
		doc.Dialogue = append(doc.Dialogue, dialogueEntry{Speaker: string(t.Role), Text: t.Text})
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dialogue: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write dialogue: %w", err)
	}
	return nil
}

func estimatedDuration(turns []dialogue.Turn, wpm int) time.Duration {
	var total time.Duration
	for _, t := range turns {
		total += dialogue.EstimateSpeechDuration(t.Text, wpm)
	}
	return total
}
