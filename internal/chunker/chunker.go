// Package chunker splits a source document into roughly even discussion
// segments, cutting only at sentence or paragraph boundaries.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/docucast/docucast/internal/config"
)

// Segment is one contiguous slice of the source document assigned to a
// single round of dialogue generation.
type Segment struct {
	Index int
	Text  string
}

// ChunkingError means the document cannot be segmented at all.
type ChunkingError struct {
	Reason string
}

func (e *ChunkingError) Error() string {
	return fmt.Sprintf("chunking failed: %s", e.Reason)
}

type Chunker struct {
	cfg config.ChunkingConfig
}

func New(cfg config.ChunkingConfig) *Chunker {
	return &Chunker{cfg: cfg}
}

// Split partitions text into targetCount segments. A non-positive
// targetCount asks for the count to be derived from document length.
// The returned segments are exact substrings of text, in order, and
// concatenate back to the input.
func (c *Chunker) Split(text string, targetCount int) ([]Segment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ChunkingError{Reason: "document is empty"}
	}

	if targetCount <= 0 {
		targetCount = c.defaultCount(text)
	}
	if targetCount > c.cfg.MaxChunks {
		targetCount = c.cfg.MaxChunks
	}
	if len(text) < c.cfg.MinChunkChars {
		targetCount = 1
	}
	if targetCount == 1 {
		return []Segment{{Index: 0, Text: text}}, nil
	}

	boundaries := sentenceBoundaries(text)
	cuts := pickCuts(boundaries, len(text), targetCount)

	segments := make([]Segment, 0, len(cuts)+1)
	start := 0
	for _, cut := range cuts {
		segments = append(segments, Segment{Index: len(segments), Text: text[start:cut]})
		start = cut
	}
	segments = append(segments, Segment{Index: len(segments), Text: text[start:]})
	return segments, nil
}

func (c *Chunker) defaultCount(text string) int {
	words := len(strings.Fields(text))
	count := words / c.cfg.WordsPerChunk
	if count < 1 {
		count = 1
	}
	return count
}

// sentenceBoundaries returns the offsets just after each sentence end or
// paragraph break, excluding the end of the text itself.
func sentenceBoundaries(text string) []int {
	var bounds []int
	runes := []rune(text)
	offset := 0
	for i, r := range runes {
		size := len(string(r))
		if i+1 < len(runes) {
			next := runes[i+1]
			switch {
			case (r == '.' || r == '!' || r == '?') && unicode.IsSpace(next):
				bounds = append(bounds, offset+size)
			case r == '\n' && next == '\n':
				bounds = append(bounds, offset+size)
			}
		}
		offset += size
	}
	return bounds
}

// pickCuts selects count-1 cut offsets, each the boundary nearest its
// ideal even-split point. Duplicate or non-increasing picks are dropped,
// so fewer segments than requested may come back for boundary-poor text.
func pickCuts(boundaries []int, length, count int) []int {
	var cuts []int
	prev := 0
	for i := 1; i < count; i++ {
		ideal := length * i / count
		best := -1
		bestDist := length + 1
		for _, b := range boundaries {
			if b <= prev || b >= length {
				continue
			}
			dist := b - ideal
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist {
				best = b
				bestDist = dist
			}
		}
		if best < 0 {
			continue
		}
		cuts = append(cuts, best)
		prev = best
	}
	return cuts
}
