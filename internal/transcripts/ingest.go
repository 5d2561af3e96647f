package transcripts

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/go-shiori/go-readability"

	"github.com/scribechat/scribechat/internal/store"
	"github.com/scribechat/scribechat/models"
)

// Ingestor registers new media items and stores their transcript text.
// Transcription itself happens upstream; this consumes its output files.
type Ingestor struct {
	store *store.Store
}

func NewIngestor(st *store.Store) *Ingestor {
	return &Ingestor{store: st}
}

// IngestFile reads a transcript file, strips HTML when the file carries it,
// and stores the result under a fresh media item. A caption export from a
// transcription provider is often an HTML page; readability reduces it to
// the spoken text.
func (ing *Ingestor) IngestFile(ctx context.Context, ownerID, mediaName, kind, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read transcript file: %w", err)
	}
	text := string(raw)
	if looksLikeHTML(text) {
		text, err = stripHTML(text)
		if err != nil {
			return "", fmt.Errorf("strip html: %w", err)
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("transcript file %s is empty", path)
	}

	if kind != models.MediaKindVideo {
		kind = models.MediaKindAudio
	}
	mediaID, err := ing.store.CreateMedia(ctx, ownerID, mediaName, kind)
	if err != nil {
		return "", fmt.Errorf("register media: %w", err)
	}
	if err := ing.store.UpsertTranscript(ctx, mediaID, text); err != nil {
		return "", fmt.Errorf("store transcript: %w", err)
	}
	return mediaID, nil
}

// IngestArtifact stores the extracted-text artifact of a video item.
func (ing *Ingestor) IngestArtifact(ctx context.Context, ownerID, mediaName, path string) error {
	item, err := ing.store.GetMediaByName(ctx, ownerID, mediaName)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read artifact file: %w", err)
	}
	text := string(raw)
	if looksLikeHTML(text) {
		if stripped, err := stripHTML(text); err == nil {
			text = stripped
		}
	}
	return ing.store.UpsertArtifact(ctx, item.ID, strings.TrimSpace(text))
}

func looksLikeHTML(s string) bool {
	head := strings.ToLower(strings.TrimSpace(s))
	if len(head) > 256 {
		head = head[:256]
	}
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html") || strings.Contains(head, "<body")
}

func stripHTML(html string) (string, error) {
	u, _ := url.Parse("file://local")
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return "", err
	}
	return article.TextContent, nil
}
