package prompt

import (
	"strings"
	"testing"

	"github.com/scribechat/scribechat/models"
)

func TestBuildIncludesContextAndTurns(t *testing.T) {
	blocks := []models.ContextBlock{
		{MediaName: "standup.mp3", Text: "we agreed to ship on friday"},
		{MediaName: "retro.mp3", Text: "the deadline slipped twice"},
	}
	turns := []models.Turn{
		{Role: models.RoleUser, Content: "when do we ship?"},
		{Role: models.RoleAssistant, Content: "On Friday."},
		{Role: models.RoleUser, Content: "did that ever slip?"},
	}

	p := Build(blocks, turns)

	for _, want := range []string{
		"standup.mp3", "retro.mp3",
		"we agreed to ship on friday",
		"USER: when do we ship?",
		"ASSISTANT: On Friday.",
		"USER: did that ever slip?",
		"```json",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
	if !strings.HasSuffix(p, "ASSISTANT:") {
		t.Fatalf("prompt must end with the assistant cue, got tail %q", p[len(p)-30:])
	}
}

func TestBuildNoContext(t *testing.T) {
	p := Build(nil, []models.Turn{{Role: models.RoleUser, Content: "hi"}})
	if !strings.Contains(p, "No transcript excerpts") {
		t.Fatalf("prompt should state the absence of excerpts:\n%s", p)
	}
}

func TestBuildLabelsExcerptsInOrder(t *testing.T) {
	blocks := []models.ContextBlock{
		{MediaName: "a.mp3", Text: "first"},
		{MediaName: "b.mp3", Text: "second"},
	}
	p := Build(blocks, []models.Turn{{Role: models.RoleUser, Content: "q"}})
	i1 := strings.Index(p, "Excerpt 1 (media: a.mp3)")
	i2 := strings.Index(p, "Excerpt 2 (media: b.mp3)")
	if i1 < 0 || i2 < 0 || i2 < i1 {
		t.Fatalf("excerpts not labeled in order:\n%s", p)
	}
}
