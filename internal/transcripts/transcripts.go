// Package transcripts exposes the stored transcript corpus: direct lookup
// for single-media turns, chunking for the passage index, and ingest of new
// transcript files.
package transcripts

import (
	"context"
	"fmt"
	"strings"

	"github.com/scribechat/scribechat/internal/store"
	"github.com/scribechat/scribechat/models"
)

// Library resolves media names to transcript text. For video items the
// extracted-text artifact is appended so on-screen content is part of the
// direct context too.
type Library struct {
	store *store.Store
}

func NewLibrary(st *store.Store) *Library {
	return &Library{store: st}
}

func (l *Library) Transcript(ctx context.Context, userID, mediaName string) (string, error) {
	item, err := l.store.GetMediaByName(ctx, userID, mediaName)
	if err != nil {
		return "", err
	}
	text, err := l.store.GetTranscript(ctx, item.ID)
	if err != nil {
		return "", fmt.Errorf("transcript for %q: %w", mediaName, err)
	}
	if item.Kind == models.MediaKindVideo {
		if extra, ok, err := l.store.GetArtifact(ctx, item.ID); err == nil && ok {
			text = text + "\n\n[extracted on-screen text]\n" + extra
		}
	}
	return text, nil
}

// Chunk splits transcript text into overlapping windows for indexing. Cuts
// prefer whitespace near the window edge so words survive intact.
func Chunk(text string, size, stride int) []string {
	if size <= 0 {
		size = 1200
	}
	if stride <= 0 || stride > size {
		stride = size / 2
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []string
	for start := 0; start < len(text); start += stride {
		end := start + size
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		cut := end
		for cut > start && !isSpace(text[cut]) {
			cut--
		}
		if cut == start {
			cut = end
		}
		out = append(out, text[start:cut])
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r'
}
