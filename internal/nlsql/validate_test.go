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
	"testing"
)

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "plain query",
			input: "SELECT * FROM users",
			want:  "SELECT * FROM users",
		},
		{
			name:  "sql code fence",
			input: "```sql\nSELECT * FROM users\n```",
			want:  "SELECT * FROM users",
		},
		{
			name:  "bare code fence",
			input: "```\nSELECT 1\n```",
			want:  "SELECT 1",
		},
		{
			name:  "trailing semicolon",
			input: "SELECT * FROM users;",
			want:  "SELECT * FROM users",
		},
		{
			name:  "only first statement survives",
			input: "SELECT 1; DROP TABLE users",
			want:  "SELECT 1",
		},
		{
			name:  "line comments removed",
			input: "-- counts users\nSELECT COUNT(*) FROM users -- inline",
			want:  "SELECT COUNT(*) FROM users",
		},
		{
			name:  "block comments removed",
			input: "SELECT /* all columns */ * FROM users",
			want:  "SELECT * FROM users",
		},
		{
			name:  "multiline collapses to one line",
			input: "SELECT id,\n  name\nFROM users\nWHERE active",
			want:  "SELECT id, name FROM users WHERE active",
		},
		{
			name:  "whitespace only",
			input: "   \n\t  ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSQL(tt.input); got != tt.want {
				t.Errorf("CleanSQL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantErrs   int
		wantSubstr string
	}{
		{
			name:     "valid select",
			query:    "SELECT * FROM users WHERE active",
			wantErrs: 0,
		},
		{
			name:     "valid cte",
			query:    "WITH recent AS (SELECT 1 AS n) SELECT COUNT(*) FROM recent",
			wantErrs: 0,
		},
		{
			name:       "empty",
			query:      "",
			wantErrs:   1,
			wantSubstr: "empty",
		},
		{
			name:       "wrong opening keyword",
			query:      "EXPLAIN SELECT * FROM users",
			wantErrs:   1,
			wantSubstr: "must begin with",
		},
		{
			name:     "opener without trailing space",
			query:    "SELECT(1)",
			wantErrs: 0,
		},
		{
			name:       "opener prefix of longer word",
			query:      "SELECTED * FROM users",
			wantErrs:   1,
			wantSubstr: "must begin with",
		},
		{
			name:       "unbalanced parentheses",
			query:      "SELECT * FROM x WHERE (a > 1",
			wantErrs:   1,
			wantSubstr: "unbalanced parentheses",
		},
		{
			name:       "duplicated from",
			query:      "SELECT * FROM users FROM orders",
			wantErrs:   1,
			wantSubstr: "duplicated clause keyword: FROM",
		},
		{
			name:     "parens inside string literal ignored",
			query:    "SELECT * FROM users WHERE note = '(unclosed'",
			wantErrs: 0,
		},
		{
			name:     "conversational output",
			query:    "I cannot answer that question",
			wantErrs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.query)
			if len(errs) != tt.wantErrs {
				t.Fatalf("Validate(%q) = %v, want %d errors", tt.query, errs, tt.wantErrs)
			}
			if tt.wantSubstr != "" {
				found := false
				for _, e := range errs {
					if strings.Contains(e, tt.wantSubstr) {
						found = true
					}
				}
				if !found {
					t.Errorf("errors %v missing %q", errs, tt.wantSubstr)
				}
			}
		})
	}
}

func TestValidateWrongKeywordNeverExecutionReady(t *testing.T) {
	// Anything not opening with an allowed keyword must carry at least
	// one error, regardless of the rest of the text
	for _, q := range []string{
		"DROP TABLE users",
		"TRUNCATE orders",
		"here is your query: SELECT 1",
		"GRANT ALL ON users TO public",
	} {
		if errs := Validate(q); len(errs) == 0 {
			t.Errorf("Validate(%q) passed, want failure", q)
		}
	}
}
