package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/scribechat/scribechat/models"
)

const rrfK = 60 // reciprocal-rank-fusion constant

// Embedder produces an embedding vector for a text. Optional: without one
// the index ranks by BM25 alone.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type chunkMeta struct {
	OwnerID   string
	MediaName string
	Text      string
	Vec       []float32
}

type chunkDoc struct {
	Text string `json:"text"`
}

// Index is an in-process passage index over transcript chunks. Lexical BM25
// and cosine vector rankings are fused with reciprocal rank fusion.
type Index struct {
	mu       sync.RWMutex
	bleve    bleve.Index
	meta     map[string]chunkMeta
	embedder Embedder
}

func NewIndex(embedder Embedder) (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create passage index: %w", err)
	}
	return &Index{
		bleve:    idx,
		meta:     make(map[string]chunkMeta),
		embedder: embedder,
	}, nil
}

// Add indexes one transcript chunk. The embedding is computed here when an
// embedder is configured.
func (ix *Index) Add(ctx context.Context, ownerID, mediaName, chunkID, text string) error {
	m := chunkMeta{OwnerID: ownerID, MediaName: mediaName, Text: text}
	if ix.embedder != nil {
		vec, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embed chunk: %w", err)
		}
		m.Vec = vec
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.meta[chunkID] = m
	if err := ix.bleve.Index(chunkID, chunkDoc{Text: text}); err != nil {
		return fmt.Errorf("index chunk: %w", err)
	}
	return nil
}

type hit struct {
	id    string
	score float64
	rank  int
}

// Retrieve implements Retriever. Hits are restricted to the owner and, when
// mediaNames is non-empty, to the named media items.
func (ix *Index) Retrieve(ctx context.Context, userID, query string, mediaNames []string, k int) ([]models.RetrievedChunk, error) {
	if k <= 0 {
		k = 8
	}
	allow := map[string]bool{}
	for _, n := range mediaNames {
		allow[n] = true
	}
	admit := func(m chunkMeta) bool {
		if m.OwnerID != userID {
			return false
		}
		if len(allow) > 0 && !allow[m.MediaName] {
			return false
		}
		return true
	}

	lexical, err := ix.bm25Search(query, k, admit)
	if err != nil {
		return nil, err
	}

	var semantic []hit
	if ix.embedder != nil {
		qvec, err := ix.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		semantic = ix.vectorSearch(qvec, k, admit)
	}

	fused := fuseRRF(lexical, semantic, k)

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]models.RetrievedChunk, 0, len(fused))
	for _, h := range fused {
		m := ix.meta[h.id]
		out = append(out, models.RetrievedChunk{
			MediaName: m.MediaName,
			Text:      m.Text,
			Rank:      h.rank,
			Score:     h.score,
		})
	}
	return out, nil
}

func (ix *Index) bm25Search(q string, k int, admit func(chunkMeta) bool) ([]hit, error) {
	query := bleve.NewQueryStringQuery(q)
	// over-fetch so owner/media filtering still leaves k results
	searchReq := bleve.NewSearchRequestOptions(query, k*10, 0, false)
	res, err := ix.bleve.Search(searchReq)
	if err != nil {
		return nil, fmt.Errorf("bm25 search: %w", err)
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []hit
	for _, h := range res.Hits {
		m, ok := ix.meta[h.ID]
		if !ok || !admit(m) {
			continue
		}
		out = append(out, hit{id: h.ID, score: h.Score, rank: len(out) + 1})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (ix *Index) vectorSearch(q []float32, k int, admit func(chunkMeta) bool) []hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	type scored struct {
		id    string
		score float64
	}
	var scoreds []scored
	for id, m := range ix.meta {
		if !admit(m) || m.Vec == nil {
			continue
		}
		scoreds = append(scoreds, scored{id: id, score: cosine(q, m.Vec)})
	}
	sort.Slice(scoreds, func(i, j int) bool { return scoreds[i].score > scoreds[j].score })
	var out []hit
	for _, sc := range scoreds {
		out = append(out, hit{id: sc.id, score: sc.score, rank: len(out) + 1})
		if len(out) >= k {
			break
		}
	}
	return out
}

func fuseRRF(a, b []hit, k int) []hit {
	type agg struct {
		score float64
	}
	m := map[string]*agg{}
	add := func(list []hit) {
		for _, h := range list {
			x, ok := m[h.id]
			if !ok {
				x = &agg{}
				m[h.id] = x
			}
			x.score += 1.0 / float64(rrfK+h.rank)
		}
	}
	add(a)
	add(b)
	fused := make([]hit, 0, len(m))
	for id, v := range m {
		fused = append(fused, hit{id: id, score: v.score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].id < fused[j].id
	})
	if len(fused) > k {
		fused = fused[:k]
	}
	for i := range fused {
		fused[i].rank = i + 1
	}
	return fused
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
