package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/scribechat/scribechat/models"
)

type fakeRetriever struct {
	calls     int
	gotFilter []string
	chunks    []models.RetrievedChunk
	err       error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _, _ string, mediaNames []string, _ int) ([]models.RetrievedChunk, error) {
	f.calls++
	f.gotFilter = mediaNames
	return f.chunks, f.err
}

type fakeLibrary struct {
	calls int
	text  string
	err   error
}

func (f *fakeLibrary) Transcript(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func request(names ...string) models.ChatRequest {
	return models.ChatRequest{
		Turns:      []models.Turn{{Role: models.RoleUser, Content: "what happened?"}},
		MediaNames: names,
	}
}

func TestBuildEmptyScopeUsesRetrieverOnly(t *testing.T) {
	r := &fakeRetriever{chunks: []models.RetrievedChunk{{MediaName: "a.mp3", Text: "passage", Rank: 1}}}
	l := &fakeLibrary{}
	b := NewContextBuilder(r, l, 4)

	blocks, err := b.Build(context.Background(), "u1", request())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.calls != 1 || l.calls != 0 {
		t.Fatalf("expected retriever only, got retriever=%d library=%d", r.calls, l.calls)
	}
	if len(blocks) != 1 || blocks[0].MediaName != "a.mp3" {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestBuildSingleNameUsesLibraryOnly(t *testing.T) {
	r := &fakeRetriever{}
	l := &fakeLibrary{text: "full transcript"}
	b := NewContextBuilder(r, l, 4)

	blocks, err := b.Build(context.Background(), "u1", request("standup.mp3"))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.calls != 0 || l.calls != 1 {
		t.Fatalf("expected library only, got retriever=%d library=%d", r.calls, l.calls)
	}
	if len(blocks) != 1 || blocks[0].Text != "full transcript" {
		t.Fatalf("unexpected blocks %+v", blocks)
	}
}

func TestBuildMultipleNamesFilterRetriever(t *testing.T) {
	r := &fakeRetriever{}
	l := &fakeLibrary{}
	b := NewContextBuilder(r, l, 4)

	if _, err := b.Build(context.Background(), "u1", request("a.mp3", "b.mp4")); err != nil {
		t.Fatalf("build: %v", err)
	}
	if r.calls != 1 || l.calls != 0 {
		t.Fatalf("expected retriever only, got retriever=%d library=%d", r.calls, l.calls)
	}
	if len(r.gotFilter) != 2 {
		t.Fatalf("expected scope passed through, got %v", r.gotFilter)
	}
}

func TestBuildWrapsRetrievalFailures(t *testing.T) {
	r := &fakeRetriever{err: errors.New("index down")}
	b := NewContextBuilder(r, &fakeLibrary{}, 4)

	_, err := b.Build(context.Background(), "u1", request())
	var rerr *models.RetrievalError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}

	l := &fakeLibrary{err: errors.New("missing")}
	b = NewContextBuilder(r, l, 4)
	_, err = b.Build(context.Background(), "u1", request("only.mp3"))
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RetrievalError from library, got %v", err)
	}
}
