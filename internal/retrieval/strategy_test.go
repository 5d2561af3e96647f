package retrieval

import "testing"

func TestSelect(t *testing.T) {
	cases := []struct {
		name  string
		names []string
		want  Strategy
	}{
		{"empty scope searches corpus", nil, StrategyCorpus},
		{"single name loads directly", []string{"standup.mp3"}, StrategyDirect},
		{"two names filter corpus", []string{"a.mp3", "b.mp4"}, StrategyCorpus},
		{"many names filter corpus", []string{"a", "b", "c", "d"}, StrategyCorpus},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Select(tc.names); got != tc.want {
				t.Fatalf("Select(%v) = %v, want %v", tc.names, got, tc.want)
			}
		})
	}
}
