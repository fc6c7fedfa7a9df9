package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/docucast/docucast/internal/config"
)

func testConfig() config.ChunkingConfig {
	return config.ChunkingConfig{WordsPerChunk: 10, MaxChunks: 8, MinChunkChars: 20}
}

func sentenceText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("This is sentence number ")
		b.WriteString(strings.Repeat("x", i%3+1))
		b.WriteString(". ")
	}
	return strings.TrimRight(b.String(), " ")
}

func TestSplitEmptyDocument(t *testing.T) {
	c := New(testConfig())
	_, err := c.Split("   \n\t ", 3)
	if err == nil {
		t.Fatal("expected error for empty document")
	}
	var ce *ChunkingError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ChunkingError, got %T", err)
	}
}

func TestSplitReconstructsDocument(t *testing.T) {
	c := New(testConfig())
	text := sentenceText(40)
	for _, count := range []int{1, 2, 3, 5, 8} {
		segments, err := c.Split(text, count)
		if err != nil {
			t.Fatalf("count %d: unexpected error: %v", count, err)
		}
		var joined strings.Builder
		for i, seg := range segments {
			if seg.Index != i {
				t.Fatalf("count %d: segment %d has index %d", count, i, seg.Index)
			}
			joined.WriteString(seg.Text)
		}
		if joined.String() != text {
			t.Fatalf("count %d: concatenated segments do not reconstruct the document", count)
		}
	}
}

func TestSplitCutsAtSentenceBoundaries(t *testing.T) {
	c := New(testConfig())
	segments, err := c.Split(sentenceText(30), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) < 2 {
		t.Fatalf("expected multiple segments, got %d", len(segments))
	}
	for _, seg := range segments[:len(segments)-1] {
		trimmed := strings.TrimRight(seg.Text, " \n")
		if !strings.HasSuffix(trimmed, ".") {
			t.Fatalf("segment %d does not end at a sentence boundary: %q", seg.Index, trimmed[len(trimmed)-20:])
		}
	}
}

func TestSplitShortDocumentSingleSegment(t *testing.T) {
	c := New(testConfig())
	segments, err := c.Split("Tiny note.", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment for short document, got %d", len(segments))
	}
	if segments[0].Text != "Tiny note." {
		t.Fatalf("expected whole document in single segment")
	}
}

func TestSplitClampsToMaxChunks(t *testing.T) {
	cfg := testConfig()
	cfg.MaxChunks = 3
	c := New(cfg)
	segments, err := c.Split(sentenceText(60), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) > 3 {
		t.Fatalf("expected at most 3 segments, got %d", len(segments))
	}
}

func TestSplitDefaultCountFromLength(t *testing.T) {
	c := New(testConfig())
	text := sentenceText(12) // ~60 words, words_per_chunk=10
	segments, err := c.Split(text, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) < 2 {
		t.Fatalf("expected derived count > 1, got %d segments", len(segments))
	}
}

func TestSplitParagraphBoundaries(t *testing.T) {
	c := New(config.ChunkingConfig{WordsPerChunk: 5, MaxChunks: 4, MinChunkChars: 5})
	text := "first paragraph without period\n\nsecond paragraph also bare\n\nthird one here"
	segments, err := c.Split(text, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var joined strings.Builder
	for _, seg := range segments {
		joined.WriteString(seg.Text)
	}
	if joined.String() != text {
		t.Fatalf("concatenated segments do not reconstruct the document")
	}
	if len(segments) < 2 {
		t.Fatalf("expected paragraph breaks to be usable boundaries")
	}
}
