package models

import "time"

// Principal identifies the authenticated user bound to a connection. It is
// derived from a verified token, never taken from the client as-is.
type Principal struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Turn is one message of the conversation history carried in a ChatRequest.
type Turn struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the reassembled payload of one chat turn. MediaNames is the
// media scope selector: empty means the whole corpus, a single name means the
// scoped transcript is loaded directly, two or more mean corpus retrieval
// restricted to those names.
type ChatRequest struct {
	Turns      []Turn   `json:"turns"`
	MediaNames []string `json:"media_names,omitempty"`
}

// Question returns the content of the last user turn, which is the query the
// retrieval layer works with.
func (r ChatRequest) Question() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == RoleUser {
			return r.Turns[i].Content
		}
	}
	return ""
}

// RetrievedChunk is a ranked passage returned by the retrieval layer.
type RetrievedChunk struct {
	MediaName string  `json:"source_media_name"`
	Text      string  `json:"text"`
	Rank      int     `json:"rank"`
	Score     float64 `json:"score,omitempty"`
}

// ContextBlock is one labeled grounding block handed to the prompt assembler.
type ContextBlock struct {
	MediaName string `json:"media_name"`
	Text      string `json:"text"`
}

// Citation points into a media item at a second offset.
type Citation struct {
	MediaName string `json:"media_name"`
	Timestamp int    `json:"timestamp"`
}

// AnswerPart is one fragment of the streamed answer. PartialAnswer values of
// consecutive parts concatenate into the readable answer text.
type AnswerPart struct {
	PartialAnswer string     `json:"partial_answer"`
	Citations     []Citation `json:"citations"`
}

// AnswerSnapshot is the unit of delivery to the client. Every snapshot sent
// mid-stream is schema-valid; the final one matches the model output exactly.
type AnswerSnapshot struct {
	Answer []AnswerPart `json:"answer"`
}

// Clone returns a deep copy so a snapshot already queued for delivery is not
// mutated by later extractor progress.
func (s AnswerSnapshot) Clone() AnswerSnapshot {
	out := AnswerSnapshot{Answer: make([]AnswerPart, len(s.Answer))}
	for i, p := range s.Answer {
		cp := p
		if p.Citations != nil {
			cp.Citations = make([]Citation, len(p.Citations))
			copy(cp.Citations, p.Citations)
		}
		out.Answer[i] = cp
	}
	return out
}

// Equal reports whether two snapshots carry the same parts and citations.
func (s AnswerSnapshot) Equal(o AnswerSnapshot) bool {
	if len(s.Answer) != len(o.Answer) {
		return false
	}
	for i := range s.Answer {
		if s.Answer[i].PartialAnswer != o.Answer[i].PartialAnswer {
			return false
		}
		if len(s.Answer[i].Citations) != len(o.Answer[i].Citations) {
			return false
		}
		for j := range s.Answer[i].Citations {
			if s.Answer[i].Citations[j] != o.Answer[i].Citations[j] {
				return false
			}
		}
	}
	return true
}

// Citations flattens the citations of all parts, in part order.
func (s AnswerSnapshot) Citations() []Citation {
	var out []Citation
	for _, p := range s.Answer {
		out = append(out, p.Citations...)
	}
	return out
}

// Text concatenates the partial answers into the full answer string.
func (s AnswerSnapshot) Text() string {
	var b []byte
	for _, p := range s.Answer {
		b = append(b, p.PartialAnswer...)
	}
	return string(b)
}

// Frame is one inbound websocket message of the fragment protocol.
type Frame struct {
	Step  string `json:"step"`
	Token string `json:"token"`
	Index *int   `json:"index,omitempty"`
	Part  string `json:"part,omitempty"`
}

const (
	StepStart = "START"
	StepBody  = "BODY"
	StepEnd   = "END"
)

// ErrorFrame is the outbound error message shape.
type ErrorFrame struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// MediaItem is a processed media entry in the catalog.
type MediaItem struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	MediaKindAudio = "audio"
	MediaKindVideo = "video"
)

// ArchivedTurn is one completed question/answer pair kept for history.
type ArchivedTurn struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
