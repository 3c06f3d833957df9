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
	"regexp"
	"strings"

	"pgedge-nlsql/internal/fragments"
	"pgedge-nlsql/internal/knowledge"
	"pgedge-nlsql/internal/logging"
)

// Candidate extraction patterns, tried in order. Returning a wrong
// table is worse than returning none, so every candidate found here is
// still verified against the store before acceptance.
var (
	fromPattern       = regexp.MustCompile(`\bfrom\s+([a-z][a-z0-9_]*)`)
	inTablePattern    = regexp.MustCompile(`\bin\s+([a-z][a-z0-9_]*)(?:\s+table)?`)
	underscorePattern = regexp.MustCompile(`\b[a-z][a-z0-9]*(?:_[a-z0-9]+)+\b`)
	suffixPattern     = regexp.MustCompile(`\b([a-z][a-z0-9_]*)\s+(?:table|records|data)\b`)
)

// candidateStopwords are words the extraction patterns capture but
// that can never be table names
var candidateStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "my": true, "our": true,
	"this": true, "that": true, "all": true, "any": true, "each": true,
	"which": true, "what": true, "every": true, "some": true,
}

// identifyTables resolves the tables a question targets. The primary
// pass is a high-threshold table_overview search; if it under-fills
// the cap, keyword extraction supplies extra candidates that are
// verified at a lower threshold. Discovery order is preserved.
func (g *Generator) identifyTables(ctx context.Context, question string) ([]string, error) {
	var tables []string
	seen := make(map[string]bool)

	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		tables = append(tables, name)
	}

	results, err := g.kb.Search(ctx, knowledge.SearchRequest{
		Query:          question,
		Limit:          g.config.MaxTables,
		ScoreThreshold: g.config.TableScoreThreshold,
		FragmentTypes:  []fragments.FragmentType{fragments.TypeTableOverview},
	})
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		add(r.Fragment.TableName())
	}

	if len(tables) >= g.config.MaxTables {
		return tables[:g.config.MaxTables], nil
	}

	for _, candidate := range extractTableCandidates(question) {
		if seen[candidate] {
			continue
		}
		ok, err := g.verifyTable(ctx, question, candidate)
		if err != nil {
			// Verification failures degrade to "candidate not accepted"
			logging.Warn("table candidate verification failed",
				"candidate", candidate, "error", err.Error())
			continue
		}
		if ok {
			add(candidate)
		}
		if len(tables) >= g.config.MaxTables {
			break
		}
	}

	return tables, nil
}

// extractTableCandidates scans the question for tokens that look like
// table references. Candidates are deduplicated in discovery order.
func extractTableCandidates(question string) []string {
	lower := strings.ToLower(question)

	var candidates []string
	seen := make(map[string]bool)

	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || candidateStopwords[name] || seen[name] {
			return
		}
		seen[name] = true
		candidates = append(candidates, name)
	}

	for _, m := range fromPattern.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	for _, m := range inTablePattern.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}
	for _, m := range underscorePattern.FindAllString(lower, -1) {
		add(m)
	}
	for _, m := range suffixPattern.FindAllStringSubmatch(lower, -1) {
		add(m[1])
	}

	return candidates
}

// verifyTable checks that a keyword-extracted candidate actually names
// an indexed table, at a threshold lower than the primary search
func (g *Generator) verifyTable(ctx context.Context, question, candidate string) (bool, error) {
	results, err := g.kb.Search(ctx, knowledge.SearchRequest{
		Query:          question,
		Limit:          1,
		ScoreThreshold: g.config.TableVerifyThreshold,
		FragmentTypes:  []fragments.FragmentType{fragments.TypeTableOverview},
		TableNames:     []string{candidate},
	})
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}
