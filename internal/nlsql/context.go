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

import (
	"context"

	"pgedge-nlsql/internal/fragments"
	"pgedge-nlsql/internal/knowledge"
	"pgedge-nlsql/internal/logging"
)

// relationshipFetchLimit is deliberately far above any realistic
// relationship count. An incomplete join condition is worse than extra
// context, so relationships are never subject to the generic bound.
const relationshipFetchLimit = 1000

// assembleContext gathers the knowledge for the identified tables:
// a bounded re-ranked fetch across all fragment types, business rules
// unfiltered by table (rules may apply globally), and every
// relationship fragment touching the tables. Retrieval failures
// degrade to an empty group; generation proceeds with whatever context
// survives.
func (g *Generator) assembleContext(ctx context.Context, question string, tables []string) *queryContext {
	qc := &queryContext{tables: tables}

	if len(tables) > 0 {
		results, err := g.kb.Search(ctx, knowledge.SearchRequest{
			Query:      question,
			Limit:      g.config.ContextLimit,
			TableNames: tables,
			ReRank:     true,
		})
		if err != nil {
			logging.Warn("table context retrieval failed", "error", err.Error())
		}
		for _, r := range results {
			switch r.Fragment.Type {
			case fragments.TypeTableOverview, fragments.TypeColumns, fragments.TypeSchemaOverview:
				qc.schema = append(qc.schema, r)
			case fragments.TypeEnum:
				qc.enums = append(qc.enums, r)
			}
			// Relationship and business-rule hits are superseded by the
			// dedicated fetches below
		}

		// Relationship fragments are keyed to the FK-owning table, so
		// the filter must also match the referenced side or a far-side
		// table loses its join conditions
		relationships, err := g.kb.Search(ctx, knowledge.SearchRequest{
			Query:             question,
			Limit:             relationshipFetchLimit,
			FragmentTypes:     []fragments.FragmentType{fragments.TypeRelationship},
			TableNames:        tables,
			MatchRelatedTable: true,
		})
		if err != nil {
			logging.Warn("relationship retrieval failed", "error", err.Error())
		}
		qc.relationships = relationships
	}

	rules, err := g.kb.Search(ctx, knowledge.SearchRequest{
		Query:         question,
		Limit:         g.config.ContextLimit,
		FragmentTypes: []fragments.FragmentType{fragments.TypeBusinessRule},
	})
	if err != nil {
		logging.Warn("business rule retrieval failed", "error", err.Error())
	}
	qc.businessRules = rules

	return qc
}

// retrieveExamples fetches the confirmed examples most similar to the
// question. Absence of an example store, or a retrieval failure, means
// no examples; it never blocks generation.
func (g *Generator) retrieveExamples(ctx context.Context, question string, qc *queryContext) {
	if g.examples == nil {
		return
	}

	similar, err := g.examples.FindSimilar(ctx, question,
		g.config.ExampleLimit, g.config.ExampleScoreThreshold)
	if err != nil {
		logging.Warn("example retrieval failed", "error", err.Error())
		return
	}
	qc.examples = similar
}
