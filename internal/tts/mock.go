package tts

import (
	"context"
	"errors"
	"strings"
	"time"
)

// mockWordsPerMinute paces the mock's synthetic clip lengths.
const mockWordsPerMinute = 150

type mockSynth struct {
	sampleRate int
	channels   int
}

// NewMockSynth returns a provider emitting silent clips whose duration
// tracks the text length. Useful for dry runs and tests.
func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (Clip, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Clip{}, errors.New("empty text")
	}
	select {
	case <-ctx.Done():
		return Clip{}, ctx.Err()
	case <-time.After(5 * time.Millisecond):
	}
	words := len(strings.Fields(req.Text))
	d := time.Duration(float64(words) / mockWordsPerMinute * float64(time.Minute))
	clip := Silence(d, m.sampleRate, m.channels)
	clip.Silent = false
	return clip, nil
}
