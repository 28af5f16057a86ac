package fuzzy

import (
	fuzz "github.com/paul-mannino/go-fuzzywuzzy"
)

// Scorer computes a 0-100 similarity between two strings.
type Scorer func(a, b string) int

// TokenSortRatio scores two strings ignoring token order.
// "City ISD North" and "North City ISD" score 100.
func TokenSortRatio(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	return fuzz.TokenSortRatio(a, b)
}

// WRatio is the weighted composite scorer used for reference matching.
func WRatio(a, b string) int {
	if a == "" && b == "" {
		return 0
	}
	return fuzz.WRatio(a, b)
}

// Hit is the result of a best-match scan over a candidate list.
type Hit struct {
	Index int
	Score int
}

// ExtractOne returns the best-scoring candidate at or above cutoff.
// Ties keep the earliest candidate so results are deterministic for a
// given input order. ok is false when no candidate reaches the cutoff.
func ExtractOne(target string, candidates []string, scorer Scorer, cutoff int) (Hit, bool) {
	best := Hit{Index: -1, Score: -1}
	for i, cand := range candidates {
		score := scorer(target, cand)
		if score > best.Score {
			best = Hit{Index: i, Score: score}
		}
	}
	if best.Index < 0 || best.Score < cutoff {
		return Hit{Index: -1}, false
	}
	return best, true
}
