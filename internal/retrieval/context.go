package retrieval

import (
	"context"
	"fmt"

	"github.com/scribechat/scribechat/models"
)

// Retriever returns ranked passages for a query. An empty mediaNames slice
// means the whole corpus of the user.
type Retriever interface {
	Retrieve(ctx context.Context, userID, query string, mediaNames []string, k int) ([]models.RetrievedChunk, error)
}

// Library resolves a media name to its full transcript text.
type Library interface {
	Transcript(ctx context.Context, userID, mediaName string) (string, error)
}

// ContextBuilder turns a chat request into the grounding blocks for the
// prompt. Exactly one of the two collaborators is consulted per request,
// depending on the selected strategy.
type ContextBuilder struct {
	Retriever Retriever
	Library   Library
	TopK      int
}

func NewContextBuilder(retriever Retriever, library Library, topK int) *ContextBuilder {
	if topK <= 0 {
		topK = 8
	}
	return &ContextBuilder{Retriever: retriever, Library: library, TopK: topK}
}

// Build returns the context blocks for the request. Failures are wrapped in
// RetrievalError so the pipeline can degrade instead of dropping the turn.
func (b *ContextBuilder) Build(ctx context.Context, userID string, req models.ChatRequest) ([]models.ContextBlock, error) {
	switch Select(req.MediaNames) {
	case StrategyDirect:
		name := req.MediaNames[0]
		text, err := b.Library.Transcript(ctx, userID, name)
		if err != nil {
			return nil, &models.RetrievalError{Err: fmt.Errorf("load transcript %q: %w", name, err)}
		}
		return []models.ContextBlock{{MediaName: name, Text: text}}, nil
	default:
		chunks, err := b.Retriever.Retrieve(ctx, userID, req.Question(), req.MediaNames, b.TopK)
		if err != nil {
			return nil, &models.RetrievalError{Err: fmt.Errorf("retrieve passages: %w", err)}
		}
		blocks := make([]models.ContextBlock, 0, len(chunks))
		for _, c := range chunks {
			blocks = append(blocks, models.ContextBlock{MediaName: c.MediaName, Text: c.Text})
		}
		return blocks, nil
	}
}
