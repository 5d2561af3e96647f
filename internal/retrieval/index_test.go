package retrieval

import (
	"context"
	"testing"
)

func TestIndexOwnerIsolation(t *testing.T) {
	ix, err := NewIndex(nil)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	ctx := context.Background()
	_ = ix.Add(ctx, "alice", "standup.mp3", "c1", "the pricing discussion moved to thursday")
	_ = ix.Add(ctx, "bob", "allhands.mp4", "c2", "pricing changes were approved by the board")

	chunks, err := ix.Retrieve(ctx, "alice", "pricing", nil, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].MediaName != "standup.mp3" {
		t.Fatalf("leaked chunk from another owner: %+v", chunks[0])
	}
}

func TestIndexMediaFilter(t *testing.T) {
	ix, err := NewIndex(nil)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	ctx := context.Background()
	_ = ix.Add(ctx, "alice", "standup.mp3", "c1", "pricing was discussed at the standup")
	_ = ix.Add(ctx, "alice", "allhands.mp4", "c2", "pricing was discussed at the all hands")
	_ = ix.Add(ctx, "alice", "retro.mp3", "c3", "pricing came up in the retro as well")

	chunks, err := ix.Retrieve(ctx, "alice", "pricing", []string{"standup.mp3", "retro.mp3"}, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.MediaName == "allhands.mp4" {
			t.Fatalf("media filter ignored: %+v", c)
		}
	}
}

func TestIndexRanksAssigned(t *testing.T) {
	ix, err := NewIndex(nil)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	ctx := context.Background()
	_ = ix.Add(ctx, "alice", "a.mp3", "c1", "kubernetes cluster upgrade steps")
	_ = ix.Add(ctx, "alice", "b.mp3", "c2", "kubernetes ingress configuration")

	chunks, err := ix.Retrieve(ctx, "alice", "kubernetes", nil, 5)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	for i, c := range chunks {
		if c.Rank != i+1 {
			t.Fatalf("expected contiguous ranks from 1, got %+v", chunks)
		}
	}
}
