package extractor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/scribechat/scribechat/models"
)

const fullResponse = "Here is the answer.\n```json\n" +
	`{"answer": [` +
	`{"partial_answer": "The launch moved to ", "citations": [{"media_name": "standup.mp3", "timestamp": 42}]}, ` +
	`{"partial_answer": "Friday.", "citations": [{"media_name": "retro.mp3", "timestamp": 910}]}` +
	"]}\n```"

func TestEveryPrefixYieldsValidSnapshot(t *testing.T) {
	// feed byte by byte; the snapshot after every delta must be
	// schema-valid regardless of where the document is cut
	e := New()
	for i := 0; i < len(fullResponse); i++ {
		snap, _ := e.Feed(fullResponse[i : i+1])
		if len(snap.Answer) == 0 {
			t.Fatalf("empty answer list after byte %d", i)
		}
		for pi, p := range snap.Answer {
			if p.Citations == nil {
				t.Fatalf("nil citations in part %d after byte %d", pi, i)
			}
		}
		if _, err := json.Marshal(snap); err != nil {
			t.Fatalf("snapshot failed to marshal after byte %d: %v", i, err)
		}
	}
}

func TestClosureReconcilesExactly(t *testing.T) {
	e := New()
	var last models.AnswerSnapshot
	for i := 0; i < len(fullResponse); i += 7 {
		end := i + 7
		if end > len(fullResponse) {
			end = len(fullResponse)
		}
		last, _ = e.Feed(fullResponse[i:end])
	}
	final := e.Final()

	if len(final.Answer) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(final.Answer))
	}
	if final.Text() != "The launch moved to Friday." {
		t.Fatalf("unexpected final text %q", final.Text())
	}
	if c := final.Answer[0].Citations; len(c) != 1 || c[0].MediaName != "standup.mp3" || c[0].Timestamp != 42 {
		t.Fatalf("unexpected citations %+v", final.Answer[0].Citations)
	}
	if !snapshotsEqual(last, final) {
		t.Fatalf("last fed snapshot %+v differs from final %+v", last, final)
	}
}

func TestMidStreamTextGrows(t *testing.T) {
	e := New()
	e.Feed("```json\n" + `{"answer": [{"partial_answer": "The la`)
	snap, _ := e.Feed("unch moved")
	if got := snap.Text(); got != "The launch moved" {
		t.Fatalf("expected partial text to track the stream, got %q", got)
	}
	if len(snap.Answer) != 1 {
		t.Fatalf("expected a single part, got %d", len(snap.Answer))
	}
	if len(snap.Answer[0].Citations) != 0 {
		t.Fatalf("citations should be empty until their array closes, got %+v", snap.Answer[0].Citations)
	}
}

func TestCitationsAppearWhenArrayCloses(t *testing.T) {
	e := New()
	e.Feed("```json\n" + `{"answer": [{"partial_answer": "Done.", "citations": [{"media_name": "a.mp3", "timestamp": 5}`)
	snap, _ := e.Feed("]")
	if len(snap.Answer) != 1 || len(snap.Answer[0].Citations) != 1 {
		t.Fatalf("expected the closed citations array to surface, got %+v", snap.Answer)
	}
	if snap.Answer[0].Citations[0].Timestamp != 5 {
		t.Fatalf("unexpected citation %+v", snap.Answer[0].Citations[0])
	}
}

func TestTruncatedStreamKeepsLastSnapshot(t *testing.T) {
	// generation dies mid-document: no error, the last snapshot stands
	e := New()
	e.Feed("```json\n" + `{"answer": [{"partial_answer": "An unfinished thou`)
	final := e.Final()
	if final.Text() != "An unfinished thou" {
		t.Fatalf("expected the truncated text to survive, got %q", final.Text())
	}
}

func TestEscapedCharactersDecoded(t *testing.T) {
	e := New()
	doc := "```json\n" + `{"answer": [{"partial_answer": "line one\nquote \"x\"", "citations": []}]}` + "\n```"
	var snap models.AnswerSnapshot
	for _, chunk := range strings.Split(doc, " ") {
		snap, _ = e.Feed(chunk + " ")
	}
	_ = snap
	final := e.Final()
	if final.Text() != "line one\nquote \"x\"" {
		t.Fatalf("escapes not decoded: %q", final.Text())
	}
}

func TestUnfencedDocumentRecoveredAtFinal(t *testing.T) {
	e := New()
	e.Feed(`{"answer": [{"partial_answer": "No fence here.", "citations": []}]}`)
	final := e.Final()
	if final.Text() != "No fence here." {
		t.Fatalf("expected bare JSON to reconcile at end of stream, got %q", final.Text())
	}
}

func TestGarbageBufferYieldsDefaultPart(t *testing.T) {
	e := New()
	snap, _ := e.Feed("I refuse to answer in the requested format.")
	if len(snap.Answer) != 1 {
		t.Fatalf("expected the single default part for non-conforming output, got %+v", snap.Answer)
	}
	if p := snap.Answer[0]; p.PartialAnswer != "" || len(p.Citations) != 0 {
		t.Fatalf("default part must carry empty text and no citations, got %+v", p)
	}
	final := e.Final()
	if len(final.Answer) != 1 || final.Text() != "" {
		t.Fatalf("final snapshot must keep the default part, got %+v", final.Answer)
	}
}

func TestProseBeforeDocumentKeepsDefaultPart(t *testing.T) {
	// deltas arriving before the fenced document opens must still carry
	// one default part, never a bare answer list
	e := New()
	for _, delta := range []string{"Here is", " the answer.\n", "```json\n", `{"answer": `} {
		snap, _ := e.Feed(delta)
		if len(snap.Answer) == 0 {
			t.Fatalf("emitted snapshot has empty answer list after %q", delta)
		}
		if p := snap.Answer[0]; p.PartialAnswer != "" || len(p.Citations) != 0 {
			t.Fatalf("expected the default part before any answer text, got %+v", p)
		}
	}
}

func TestFeedReportsChanges(t *testing.T) {
	e := New()
	_, changed := e.Feed("```json\n" + `{"answer": [{"partial_answer": "Hi`)
	if !changed {
		t.Fatalf("expected first text to register as a change")
	}
	_, changed = e.Feed(`", "citations`)
	if changed {
		t.Fatalf("expected no change while only structure streams in")
	}
}
