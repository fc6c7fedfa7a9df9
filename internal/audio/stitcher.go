// Package audio assembles per-turn clips into the final podcast audio.
package audio

import (
	"bytes"
	"errors"
	"time"

	"github.com/docucast/docucast/internal/dialogue"
	"github.com/docucast/docucast/internal/tts"
)

// ErrNoClips is the degenerate case: every turn's synthesis failed and
// there is nothing to assemble.
var ErrNoClips = errors.New("no audio clips to assemble")

// Stitched is the final audio buffer with its authoritative transcript.
type Stitched struct {
	PCM        []byte
	SampleRate int
	Channels   int
	Duration   time.Duration
	Lines      []dialogue.Line
}

// Stitch concatenates clips strictly in turn ordinal order, inserting a
// fixed silence gap between consecutive clips. Transcript offsets are
// recomputed as the cumulative running duration at the start of each
// clip, superseding the assembler's estimates.
func Stitch(clips []tts.Clip, turns []dialogue.Turn, gap time.Duration) (*Stitched, error) {
	if len(clips) == 0 {
		return nil, ErrNoClips
	}

	byOrdinal := make(map[int]dialogue.Turn, len(turns))
	for _, t := range turns {
		byOrdinal[t.Ordinal] = t
	}

	sampleRate := clips[0].SampleRate
	channels := clips[0].Channels
	gapPCM := tts.Silence(gap, sampleRate, channels).PCM

	var buf bytes.Buffer
	lines := make([]dialogue.Line, 0, len(clips))
	var offset time.Duration

	for i, clip := range clips {
		if i > 0 {
			buf.Write(gapPCM)
			offset += pcmDuration(len(gapPCM), sampleRate, channels)
		}
		turn := byOrdinal[clip.TurnOrdinal]
		lines = append(lines, dialogue.Line{Offset: offset, Role: turn.Role, Text: turn.Text})
		buf.Write(clip.PCM)
		offset += clip.Duration()
	}

	return &Stitched{
		PCM:        buf.Bytes(),
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   offset,
		Lines:      lines,
	}, nil
}

func pcmDuration(n, sampleRate, channels int) time.Duration {
	samples := n / (2 * channels)
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
