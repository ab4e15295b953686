package app

import (
	"github.com/agnivade/levenshtein"

	"github.com/dshills/fanout/internal/event/topic"
)

// suggest returns the candidate closest to name by edit distance, or "" when
// nothing is close enough. Among equally close candidates, one in the same
// namespace as name wins, then the earlier one.
func suggest(name string, candidates []string) string {
	limit := max(2, len(name)/3)
	parent := topic.Topic(name).Parent()

	best, bestDist, bestSibling := "", limit+1, false
	for _, c := range candidates {
		if c == name {
			continue
		}
		d := levenshtein.ComputeDistance(name, c)
		if d > limit {
			continue
		}
		sibling := parent != "" && topic.Topic(c).HasPrefix(parent)
		if d < bestDist || (d == bestDist && sibling && !bestSibling) {
			best, bestDist, bestSibling = c, d, sibling
		}
	}
	return best
}
