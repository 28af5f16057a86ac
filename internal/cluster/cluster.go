// Package cluster groups near-duplicate name values ahead of interactive
// merge review.
//
// Clustering is greedy, order-dependent and non-transitive: each unassigned
// name starts a group and captures every later unassigned name scoring at or
// above the threshold against it - against the representative only, not
// against the other members. Two names both similar to a third but not to
// each other can therefore land in different groups. Reviewers rely on this
// granularity, so the behavior is kept as-is rather than widened to a
// transitive closure.
package cluster

import (
	"github.com/nms-crm/internal/fuzzy"
)

// DefaultThreshold is the similarity cutoff for grouping two names.
const DefaultThreshold = 85

// Group is a cluster of raw name values believed to denote one entity.
// Members always include the representative, in discovery order.
type Group struct {
	Representative string
	Members        []string
}

// Groups clusters the given name sequence using token-sort similarity.
// The input may carry duplicates; distinct values are clustered in first-seen
// order. Returned groups either have two or more members, or are a single
// name that occurs more than once in the input (a perfect-duplicate group,
// emitted so identical records are never missed by clustering order).
func Groups(names []string, threshold int) []Group {
	return GroupsWithScorer(names, threshold, fuzzy.TokenSortRatio)
}

// GroupsWithScorer is Groups with an injectable similarity scorer.
func GroupsWithScorer(names []string, threshold int, scorer fuzzy.Scorer) []Group {
	distinct := make([]string, 0, len(names))
	counts := make(map[string]int, len(names))
	for _, name := range names {
		if counts[name] == 0 {
			distinct = append(distinct, name)
		}
		counts[name]++
	}

	assigned := make(map[string]bool, len(distinct))
	var out []Group

	for i, name := range distinct {
		if assigned[name] {
			continue
		}
		assigned[name] = true
		group := Group{Representative: name, Members: []string{name}}

		// Scan every later unassigned name against the representative.
		// Candidates scoring at the threshold are included.
		for _, cand := range distinct[i+1:] {
			if assigned[cand] {
				continue
			}
			if scorer(name, cand) >= threshold {
				assigned[cand] = true
				group.Members = append(group.Members, cand)
			}
		}

		if len(group.Members) >= 2 || counts[name] > 1 {
			out = append(out, group)
		}
	}
	return out
}
