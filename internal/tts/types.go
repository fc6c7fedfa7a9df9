// Package tts provides pluggable text-to-speech providers producing
// PCM clips, one per dialogue turn.
package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/docucast/docucast/internal/config"
)

// SynthRequest contains parameters to synthesize one turn's speech.
type SynthRequest struct {
	Text         string
	Voice        string
	Instructions string
}

// Clip is an owned buffer of 16-bit little-endian PCM for one turn.
type Clip struct {
	TurnOrdinal int
	PCM         []byte
	SampleRate  int
	Channels    int
	Silent      bool
}

// Duration derives the clip length from its sample count.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 || c.Channels <= 0 {
		return 0
	}
	samples := len(c.PCM) / (2 * c.Channels)
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// Silence builds a clip of zeroed samples spanning d.
func Silence(d time.Duration, sampleRate, channels int) Clip {
	samples := int(d.Nanoseconds() * int64(sampleRate) / int64(time.Second))
	if samples < 0 {
		samples = 0
	}
	return Clip{
		PCM:        make([]byte, samples*channels*2),
		SampleRate: sampleRate,
		Channels:   channels,
		Silent:     true,
	}
}

// Synthesizer is the contract a provider implements.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (Clip, error)
}

// SynthesisError is a transient per-turn failure. The renderer degrades
// the turn to silence once retries are exhausted.
type SynthesisError struct {
	Turn int
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for turn %d: %v", e.Turn, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// New builds the provider selected by config, validating voices up
// front so a bad voice fails at configuration time, not per call.
func New(cfg config.TTSConfig) (Synthesizer, error) {
	if err := ValidateVoices(cfg); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "mock":
		return NewMockSynth(cfg.SampleRate, cfg.Channels), nil
	case "openai":
		return NewOpenAISynth(cfg.Model, cfg.SampleRate)
	case "elevenlabs":
		return NewElevenLabsSynth(cfg.Model, cfg.SampleRate)
	case "exec":
		return NewExecSynth(cfg.Command, cfg.SampleRate, cfg.Channels)
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}
