// Package scoring implements the interest heuristic that decides which
// generated thoughts are worth keeping and which count as discoveries.
package scoring

import "strings"

var interestKeywords = []string{
	"connection", "pattern", "similar", "like", "reminds me",
	"what if", "perhaps", "maybe", "could be", "might",
	"interesting", "fascinating", "beautiful", "elegant",
	"paradox", "contradiction", "unexpected", "surprising",
	"discovery", "insight", "realization", "understanding",
}

var breakthroughKeywords = []string{
	"breakthrough", "eureka", "suddenly clear", "now i see",
	"this explains", "the key is", "fundamental", "profound",
	"revolutionary", "paradigm", "transforms everything",
}

// Scorer computes interest scores for generated text. It is stateless
// and safe for concurrent use.
type Scorer struct{}

func New() *Scorer {
	return &Scorer{}
}

// Score rates text in [0, 1]. The model is additive: 0.1 per interest
// keyword present, 0.5 per breakthrough keyword present, 0.1 for texts
// longer than 100 characters, 0.05 per '?', 0.1 per '!', clamped to 1.
func (s *Scorer) Score(text string) float64 {
	score := 0.0
	lower := strings.ToLower(text)

	for _, kw := range interestKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
		}
	}
	for _, kw := range breakthroughKeywords {
		if strings.Contains(lower, kw) {
			score += 0.5
		}
	}

	if len(text) > 100 {
		score += 0.1
	}
	score += float64(strings.Count(text, "?")) * 0.05
	score += float64(strings.Count(text, "!")) * 0.1

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// IsGold reports whether text counts as a gold strike. The check is a
// disjunction: a score above 0.6 OR any breakthrough keyword qualifies,
// so a short text carrying a single breakthrough marker is gold even
// though its raw score is only 0.5.
func (s *Scorer) IsGold(text string, score float64) bool {
	if score > 0.6 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range breakthroughKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
