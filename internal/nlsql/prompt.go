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
	"strings"
)

// systemInstructions frame every generation call
const systemInstructions = `You are a PostgreSQL expert. Given database schema context and a natural language question, generate a SQL query that answers the question.

Requirements:
1. Generate ONLY the SQL query, no explanations or markdown formatting
2. Use proper PostgreSQL syntax
3. Consider the column descriptions and table relationships
4. Use appropriate JOINs when needed
5. Include proper WHERE clauses, GROUP BY, ORDER BY as needed
6. Use meaningful column aliases
7. Do NOT include semicolons at the end
8. Return ONLY the SQL query text, nothing else`

// buildPrompt assembles the generation prompt in a fixed section
// order: schema, relationships, business rules, enumerations,
// examples, question. Later sections sit closer to the question and
// get more model attention, so examples and the question come last.
func buildPrompt(question string, qc *queryContext) string {
	var b strings.Builder

	if len(qc.schema) > 0 {
		b.WriteString("Database Schema:\n")
		for _, r := range qc.schema {
			b.WriteString(r.Fragment.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(qc.relationships) > 0 {
		b.WriteString("Table Relationships (authoritative join conditions, use these exactly as written):\n")
		for _, r := range qc.relationships {
			b.WriteString(r.Fragment.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(qc.businessRules) > 0 {
		b.WriteString("Business Rules:\n")
		for _, r := range qc.businessRules {
			b.WriteString(r.Fragment.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(qc.enums) > 0 {
		b.WriteString("Allowed Values:\n")
		for _, r := range qc.enums {
			b.WriteString(r.Fragment.Text)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(qc.examples) > 0 {
		b.WriteString("Verified Examples:\n")
		for _, ex := range qc.examples {
			b.WriteString("Question: ")
			b.WriteString(ex.Question)
			b.WriteString("\nSQL: ")
			b.WriteString(ex.Query)
			b.WriteString("\n\n")
		}
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nSQL Query:")

	return b.String()
}
