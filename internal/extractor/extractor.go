// Package extractor reconstructs answer snapshots from the raw delta stream
// of a generation backend. The model is asked for a fenced JSON document, but
// deltas cut that document at arbitrary byte positions, so the extractor runs
// two tiers: a lenient single-pass scan that yields an approximate but always
// schema-valid snapshot after every delta, and a strict parse that replaces
// the working snapshot the moment the closing fence arrives.
package extractor

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/scribechat/scribechat/models"
)

const (
	partialAnswerKey = `"partial_answer"`
	citationsKey     = `"citations"`
	fence            = "```"
)

// Extractor accumulates the delta stream for one generation. Not safe for
// concurrent use; the pipeline feeds it from a single goroutine.
type Extractor struct {
	buf   strings.Builder
	last  models.AnswerSnapshot
	final bool
}

func New() *Extractor {
	return &Extractor{last: emptySnapshot()}
}

// emptySnapshot is the working snapshot before any answer bytes arrive: a
// single default part with empty text and no citations, never a bare list.
func emptySnapshot() models.AnswerSnapshot {
	return models.AnswerSnapshot{Answer: []models.AnswerPart{
		{PartialAnswer: "", Citations: []models.Citation{}},
	}}
}

// Feed appends one delta and returns the current snapshot plus whether it
// differs from the previous one. The returned snapshot is always valid
// against the answer schema, whatever state the buffer is in.
func (e *Extractor) Feed(delta string) (models.AnswerSnapshot, bool) {
	e.buf.WriteString(delta)
	if e.final {
		return e.last.Clone(), false
	}
	s := e.buf.String()

	if snap, ok := strictFromFence(s); ok {
		changed := !snapshotsEqual(e.last, snap)
		e.last = snap
		e.final = true
		return e.last.Clone(), changed
	}

	snap := lenientScan(s)
	changed := !snapshotsEqual(e.last, snap)
	e.last = snap
	return e.last.Clone(), changed
}

// Final returns the snapshot that stands at end of stream. If the closing
// fence never arrived the last approximate snapshot is returned as-is; a
// truncated stream is not an error at this layer.
func (e *Extractor) Final() models.AnswerSnapshot {
	if e.final {
		return e.last.Clone()
	}
	// the fence may be missing while the document itself is complete
	if snap, ok := strictParse(e.buf.String()); ok {
		e.last = snap
		e.final = true
	}
	return e.last.Clone()
}

// strictFromFence attempts the exact parse of a completed fenced block.
func strictFromFence(s string) (models.AnswerSnapshot, bool) {
	open := strings.Index(s, fence)
	if open < 0 {
		return models.AnswerSnapshot{}, false
	}
	start := open + len(fence)
	if nl := strings.IndexByte(s[start:], '\n'); nl >= 0 {
		start += nl + 1 // skip the language tag line
	}
	closing := strings.Index(s[start:], fence)
	if closing < 0 {
		return models.AnswerSnapshot{}, false
	}
	return strictParse(s[start : start+closing])
}

// strictParse decodes the first balanced JSON object in s into a snapshot.
func strictParse(s string) (models.AnswerSnapshot, bool) {
	obj, ok := firstJSONObject(s)
	if !ok {
		return models.AnswerSnapshot{}, false
	}
	var snap models.AnswerSnapshot
	if err := json.Unmarshal([]byte(obj), &snap); err != nil {
		return models.AnswerSnapshot{}, false
	}
	if len(snap.Answer) == 0 {
		snap.Answer = emptySnapshot().Answer
	}
	for i := range snap.Answer {
		if snap.Answer[i].Citations == nil {
			snap.Answer[i].Citations = []models.Citation{}
		}
	}
	return snap, true
}

// lenientScan walks the buffer once and rebuilds the best snapshot the bytes
// so far support. It never fails; an unparseable buffer yields the single
// default part.
func lenientScan(s string) models.AnswerSnapshot {
	if open := strings.Index(s, fence); open >= 0 {
		start := open + len(fence)
		if nl := strings.IndexByte(s[start:], '\n'); nl >= 0 {
			s = s[start+nl+1:]
		} else {
			s = s[start:]
		}
	}

	parts := []models.AnswerPart{}
	i := 0
	for {
		j := strings.Index(s[i:], partialAnswerKey)
		if j < 0 {
			break
		}
		keyEnd := i + j + len(partialAnswerKey)
		part := models.AnswerPart{Citations: []models.Citation{}}

		pos := skipSpace(s, keyEnd)
		valueEnd := keyEnd
		if pos < len(s) && s[pos] == ':' {
			pos = skipSpace(s, pos+1)
			if pos < len(s) && s[pos] == '"' {
				val, end, _ := decodeStringPrefix(s, pos)
				part.PartialAnswer = val
				valueEnd = end
			}
		}

		// citations for this part sit between its value and the next part
		next := strings.Index(s[keyEnd:], partialAnswerKey)
		segEnd := len(s)
		if next >= 0 {
			segEnd = keyEnd + next
		}
		part.Citations = scanCitations(s[valueEnd:segEnd])

		parts = append(parts, part)
		i = keyEnd
	}
	if len(parts) == 0 {
		return emptySnapshot()
	}
	return models.AnswerSnapshot{Answer: parts}
}

// scanCitations extracts the citations array in seg if it is already
// balanced and decodable. Anything less yields an empty list.
func scanCitations(seg string) []models.Citation {
	j := strings.Index(seg, citationsKey)
	if j < 0 {
		return []models.Citation{}
	}
	pos := skipSpace(seg, j+len(citationsKey))
	if pos >= len(seg) || seg[pos] != ':' {
		return []models.Citation{}
	}
	pos = skipSpace(seg, pos+1)
	if pos >= len(seg) || seg[pos] != '[' {
		return []models.Citation{}
	}
	end, ok := balancedArrayEnd(seg, pos)
	if !ok {
		return []models.Citation{}
	}
	var cits []models.Citation
	if err := json.Unmarshal([]byte(seg[pos:end]), &cits); err != nil || cits == nil {
		return []models.Citation{}
	}
	return cits
}

// firstJSONObject returns the first balanced top-level object in s,
// string-aware so braces inside answer text do not confuse the depth count.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// balancedArrayEnd returns the index just past the ']' matching the '[' at
// start, or false if the array is still open.
func balancedArrayEnd(s string, start int) (int, bool) {
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// decodeStringPrefix decodes the JSON string opening at s[start] == '"'. It
// returns the decoded value accumulated so far, the index just past the last
// consumed byte, and whether the closing quote was reached. A trailing
// half-finished escape sequence is dropped rather than guessed at.
func decodeStringPrefix(s string, start int) (string, int, bool) {
	var b strings.Builder
	i := start + 1
	for i < len(s) {
		c := s[i]
		if c == '"' {
			return b.String(), i + 1, true
		}
		if c == '\\' {
			if i+1 >= len(s) {
				return b.String(), i, false
			}
			switch s[i+1] {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				if i+6 > len(s) {
					return b.String(), i, false
				}
				if r, err := strconv.ParseUint(s[i+2:i+6], 16, 32); err == nil {
					b.WriteRune(rune(r))
				}
				i += 6
				continue
			default:
				b.WriteByte(s[i+1])
			}
			i += 2
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), len(s), false
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

func snapshotsEqual(a, b models.AnswerSnapshot) bool { return a.Equal(b) }
