package transcripts

import (
	"strings"
	"testing"
)

func TestChunkShortTextSingleChunk(t *testing.T) {
	chunks := Chunk("a short transcript", 1200, 600)
	if len(chunks) != 1 || chunks[0] != "a short transcript" {
		t.Fatalf("unexpected chunks %q", chunks)
	}
}

func TestChunkEmptyText(t *testing.T) {
	if chunks := Chunk("   \n ", 1200, 600); chunks != nil {
		t.Fatalf("expected no chunks for blank text, got %q", chunks)
	}
}

func TestChunkOverlapAndCoverage(t *testing.T) {
	words := make([]string, 400)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := Chunk(text, 200, 100)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 200 {
			t.Fatalf("chunk %d exceeds window: %d bytes", i, len(c))
		}
		if strings.TrimSpace(c) == "" {
			t.Fatalf("chunk %d is blank", i)
		}
	}
	// last chunk must reach the end of the text
	last := chunks[len(chunks)-1]
	if !strings.HasSuffix(text, last) {
		t.Fatalf("chunks do not cover the tail of the text")
	}
}

func TestChunkCutsOnWhitespace(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("alpha beta gamma delta ", 50))
	chunks := Chunk(text, 100, 50)
	for i, c := range chunks[:len(chunks)-1] {
		ok := false
		for _, w := range []string{"alpha", "beta", "gamma", "delta"} {
			if strings.HasSuffix(c, w) {
				ok = true
				break
			}
		}
		if !ok {
			t.Fatalf("chunk %d cut mid-word: %q", i, c[len(c)-12:])
		}
	}
}

func TestLooksLikeHTML(t *testing.T) {
	if !looksLikeHTML("<!DOCTYPE html><html><body>x</body></html>") {
		t.Fatalf("doctype page not detected")
	}
	if looksLikeHTML("SPEAKER 1: welcome everyone") {
		t.Fatalf("plain transcript misdetected as html")
	}
}
