/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package knowledge

import (
	"sort"

	"pgedge-nlsql/internal/fragments"
)

const (
	// similarityFactor and priorityFactor blend semantic similarity
	// with the fixed structural priority of each fragment type.
	similarityFactor = 0.7
	priorityFactor   = 0.3
)

// CombinedScore computes the blended ranking score for one result.
// Pure function of its inputs: the same (similarity, type) pair always
// produces the same score.
func CombinedScore(similarity float64, ft fragments.FragmentType) float64 {
	normalizedPriority := float64(ft.PriorityWeight()) / float64(fragments.MaxPriorityWeight)
	return similarityFactor*similarity + priorityFactor*normalizedPriority
}

// ReRank recomputes combined scores and sorts descending by them.
// The sort is stable, so re-ranking an already-ranked list is a no-op.
func ReRank(results []RetrievalResult) []RetrievalResult {
	for i := range results {
		results[i].Combined = CombinedScore(results[i].Similarity, results[i].Fragment.Type)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Combined > results[j].Combined
	})

	return results
}
