// Package prompt assembles the single generation request for a chat turn.
package prompt

import (
	"fmt"
	"strings"

	"github.com/scribechat/scribechat/models"
)

const systemInstruction = `You are an assistant that answers questions about transcripts of recorded media (meetings, calls, videos). Ground every statement in the transcript excerpts provided below and cite where the information comes from.

Respond ONLY with a fenced code block of the form:

` + "```json" + `
{"answer": [{"partial_answer": "...", "citations": [{"media_name": "...", "timestamp": 0}]}]}
` + "```" + `

Rules:
- "answer" is a list of answer parts. The "partial_answer" strings of all parts concatenate into the full answer text, so include any needed spacing and punctuation inside the strings themselves.
- Each part carries the citations supporting that part. "media_name" is the exact media name of the excerpt, "timestamp" is the offset into the media in whole seconds.
- If the excerpts do not contain the answer, say so in the answer text and cite nothing.
- Output nothing before or after the fenced block.`

// Build renders the full prompt: fixed instruction, labeled context blocks,
// then the conversation with the latest question last.
func Build(blocks []models.ContextBlock, turns []models.Turn) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\n")

	if len(blocks) == 0 {
		b.WriteString("No transcript excerpts were found for this question.\n")
	} else {
		b.WriteString("Transcript excerpts:\n")
		for i, blk := range blocks {
			fmt.Fprintf(&b, "\n--- Excerpt %d (media: %s) ---\n%s\n", i+1, blk.MediaName, blk.Text)
		}
	}

	b.WriteString("\nConversation:\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(t.Role), t.Content)
	}
	b.WriteString("ASSISTANT:")
	return b.String()
}
