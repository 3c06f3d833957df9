/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package nlsql

import "regexp"

var joinKeyword = regexp.MustCompile(`(?i)\bJOIN\b`)

// ConfidenceInputs are the explicit facts the confidence heuristic
// operates on. Keeping this a plain value makes the score reproducible
// from logged inputs.
type ConfidenceInputs struct {
	HasSchemaContext       bool
	HasRelationshipContext bool
	HasBusinessRuleContext bool
	QueryHasJoin           bool
	ValidationErrors       int
	NoContext              bool
}

// Confidence computes the heuristic score for a generation. It is a
// deliberately simple, auditable formula, not a learned model: base
// 0.5, bonuses for the context that actually informed the query,
// penalties for validation failures and for generating blind.
// The result is clamped to [0, 1].
func Confidence(in ConfidenceInputs) float64 {
	score := 0.5

	if in.HasSchemaContext {
		score += 0.2
	}
	if in.HasRelationshipContext && in.QueryHasJoin {
		score += 0.2
	}
	if in.HasBusinessRuleContext {
		score += 0.1
	}
	if in.ValidationErrors > 0 {
		score -= 0.3
	}
	if in.NoContext {
		score -= 0.4
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// confidenceInputs derives the heuristic's inputs from the assembled
// context and the validated query
func confidenceInputs(qc *queryContext, query string, validationErrors int) ConfidenceInputs {
	return ConfidenceInputs{
		HasSchemaContext:       len(qc.schema) > 0,
		HasRelationshipContext: len(qc.relationships) > 0,
		HasBusinessRuleContext: len(qc.businessRules) > 0,
		QueryHasJoin:           joinKeyword.MatchString(query),
		ValidationErrors:       validationErrors,
		NoContext:              qc.empty(),
	}
}
