// Package retrieval decides how a chat turn gets grounded and produces the
// context blocks the prompt assembler consumes.
package retrieval

// Strategy is the grounding route chosen for a request.
type Strategy string

const (
	// StrategyCorpus runs ranked passage retrieval, optionally restricted
	// to a set of media names.
	StrategyCorpus Strategy = "corpus"
	// StrategyDirect loads a single transcript verbatim into context.
	StrategyDirect Strategy = "direct"
)

// Select picks the grounding route from the media scope selector. An empty
// scope searches the whole corpus, a single name loads that transcript
// directly, two or more names search the corpus restricted to them.
func Select(mediaNames []string) Strategy {
	if len(mediaNames) == 1 {
		return StrategyDirect
	}
	return StrategyCorpus
}
