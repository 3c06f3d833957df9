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
	"fmt"

	"pgedge-nlsql/internal/fragments"
)

// RetrievalResult pairs a fragment with its per-query scores. Results
// are ephemeral and recomputed on every search.
type RetrievalResult struct {
	Fragment   fragments.SchemaFragment
	Similarity float64 // cosine similarity, 0-1 for normalized inputs
	Combined   float64 // blend of similarity and priority weight
}

// SearchRequest describes one similarity search against the store.
type SearchRequest struct {
	Query          string
	Limit          int
	ScoreThreshold float64
	FragmentTypes  []fragments.FragmentType // optional type filter
	TableNames     []string                 // optional table filter
	ReRank         bool

	// MatchRelatedTable widens the table filter to fragments whose
	// related_table matches. Relationship fragments are keyed to the
	// FK-owning table; without this a table identified only as the
	// referenced side of a join would lose its join conditions.
	MatchRelatedTable bool
}

// RetrievalError marks an embedding or index failure. Callers must
// treat it as "no context available", not as "no matches": generation
// still proceeds, with degraded confidence.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed during %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
