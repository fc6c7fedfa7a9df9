package tts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/docucast/docucast/internal/config"
	"github.com/docucast/docucast/internal/dialogue"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testTTSConfig() config.TTSConfig {
	cfg := config.Default().TTS
	cfg.Enabled = true
	cfg.MaxRetries = 1
	cfg.TimeoutMS = 1000
	return cfg
}

func TestClipDuration(t *testing.T) {
	// One second of 24kHz mono s16le.
	clip := Clip{PCM: make([]byte, 48000), SampleRate: 24000, Channels: 1}
	if d := clip.Duration(); d != time.Second {
		t.Fatalf("expected 1s, got %v", d)
	}
}

func TestSilence(t *testing.T) {
	clip := Silence(500*time.Millisecond, 24000, 1)
	if !clip.Silent {
		t.Fatal("expected silent flag")
	}
	if d := clip.Duration(); d != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %v", d)
	}
}

func TestValidateVoices(t *testing.T) {
	cfg := testTTSConfig()
	cfg.Provider = "openai"
	if err := ValidateVoices(cfg); err != nil {
		t.Fatalf("default voices should validate: %v", err)
	}

	cfg.Narrator.Voice = "hal9000"
	err := ValidateVoices(cfg)
	var uve *UnsupportedVoiceError
	if !errors.As(err, &uve) {
		t.Fatalf("expected UnsupportedVoiceError, got %v", err)
	}
	if uve.Voice != "hal9000" {
		t.Fatalf("error should name the voice, got %q", uve.Voice)
	}

	// Account-specific providers only check presence.
	cfg.Provider = "elevenlabs"
	cfg.Narrator.Voice = "Rachel"
	if err := ValidateVoices(cfg); err != nil {
		t.Fatalf("elevenlabs voice should pass presence check: %v", err)
	}
}

func TestProfileFor(t *testing.T) {
	cfg := testTTSConfig()
	narrator := ProfileFor(cfg, dialogue.RoleNarrator)
	questioner := ProfileFor(cfg, dialogue.RoleQuestioner)
	if narrator.Voice == questioner.Voice {
		t.Fatalf("roles must map to distinct configured voices")
	}
	if narrator.Voice != cfg.Narrator.Voice {
		t.Fatalf("expected narrator voice %q, got %q", cfg.Narrator.Voice, narrator.Voice)
	}
}

func TestMockSynthDurationTracksText(t *testing.T) {
	synth := NewMockSynth(24000, 1)
	short, err := synth.Synthesize(context.Background(), SynthRequest{Text: "one two", Voice: "alloy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	long, err := synth.Synthesize(context.Background(), SynthRequest{Text: strings.Repeat("word ", 30), Voice: "alloy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if long.Duration() <= short.Duration() {
		t.Fatalf("longer text should yield longer clip: %v vs %v", long.Duration(), short.Duration())
	}
}

func TestMockSynthRejectsEmptyText(t *testing.T) {
	synth := NewMockSynth(24000, 1)
	if _, err := synth.Synthesize(context.Background(), SynthRequest{Text: "   "}); err == nil {
		t.Fatal("expected error for empty text")
	}
}

// flakySynth fails a fixed number of times per turn text.
type flakySynth struct {
	failFor  string
	failures int
	inner    Synthesizer
}

func (f *flakySynth) Synthesize(ctx context.Context, req SynthRequest) (Clip, error) {
	if req.Text == f.failFor && f.failures > 0 {
		f.failures--
		return Clip{}, errors.New("provider unavailable")
	}
	return f.inner.Synthesize(ctx, req)
}

func testTurns() []dialogue.Turn {
	return []dialogue.Turn{
		{Ordinal: 0, Role: dialogue.RoleNarrator, Text: "Welcome to the show everyone."},
		{Ordinal: 1, Role: dialogue.RoleQuestioner, Text: "What is on the agenda today?"},
		{Ordinal: 2, Role: dialogue.RoleNarrator, Text: "We are digging into the details."},
	}
}

func TestRenderTurnsOrderPreserved(t *testing.T) {
	r := NewRenderer(NewMockSynth(24000, 1), testTTSConfig(), 150, newLogger())
	clips, warnings, err := r.RenderTurns(context.Background(), testTurns())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips, got %d", len(clips))
	}
	for i, clip := range clips {
		if clip.TurnOrdinal != i {
			t.Fatalf("clip %d carries ordinal %d", i, clip.TurnOrdinal)
		}
	}
}

func TestRenderTurnsRetriesThenSucceeds(t *testing.T) {
	turns := testTurns()
	synth := &flakySynth{failFor: turns[1].Text, failures: 1, inner: NewMockSynth(24000, 1)}
	r := NewRenderer(synth, testTTSConfig(), 150, newLogger())
	_, warnings, err := r.RenderTurns(context.Background(), turns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("one retryable failure should not warn, got %v", warnings)
	}
}

func TestRenderTurnsDegradesToSilence(t *testing.T) {
	turns := testTurns()
	synth := &flakySynth{failFor: turns[1].Text, failures: 99, inner: NewMockSynth(24000, 1)}
	r := NewRenderer(synth, testTTSConfig(), 150, newLogger())
	clips, warnings, err := r.RenderTurns(context.Background(), turns)
	if err != nil {
		t.Fatalf("expected degraded success, got %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "turn 1 silenced") {
		t.Fatalf("expected exactly one silenced-turn warning, got %v", warnings)
	}
	if len(clips) != 3 {
		t.Fatalf("silenced turn must still produce a clip")
	}
	if !clips[1].Silent {
		t.Fatalf("expected clip 1 to be silence")
	}
	if clips[1].Duration() == 0 {
		t.Fatalf("silence should be proportional to text length")
	}
}

func TestRenderTurnsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRenderer(NewMockSynth(24000, 1), testTTSConfig(), 150, newLogger())
	if _, _, err := r.RenderTurns(ctx, testTurns()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testTTSConfig()
	cfg.Provider = "gramophone"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestNewRejectsOpenAIRateMismatch(t *testing.T) {
	// The openai speech API is fixed at 24 kHz; any other configured
	// rate would make fallback-silence clips disagree with provider
	// clips and corrupt stitched durations and timestamps.
	cfg := testTTSConfig()
	cfg.Provider = "openai"
	cfg.SampleRate = 44100
	if _, err := New(cfg); err == nil {
		t.Fatal("expected rejection of a non-24kHz rate for the openai provider")
	}
}

func TestNewValidatesVoicesFirst(t *testing.T) {
	cfg := testTTSConfig()
	cfg.Provider = "openai"
	cfg.Questioner.Voice = "not-a-voice"
	_, err := New(cfg)
	var uve *UnsupportedVoiceError
	if !errors.As(err, &uve) {
		t.Fatalf("expected UnsupportedVoiceError before provider construction, got %v", err)
	}
}
