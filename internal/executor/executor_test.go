/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package executor

import "testing"

func TestIsReadOnly(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"plain select", "SELECT * FROM users", true},
		{"lowercase select", "select count(*) from projects", true},
		{"leading whitespace", "  \n SELECT 1", true},
		{"cte", "WITH recent AS (SELECT 1) SELECT * FROM recent", true},
		{"insert", "INSERT INTO users VALUES (1)", false},
		{"update", "UPDATE users SET name = 'x'", false},
		{"delete", "DELETE FROM users", false},
		{"drop", "DROP TABLE users", false},
		{"mutating cte", "WITH gone AS (DELETE FROM users RETURNING id) SELECT * FROM gone", false},
		{"select into disguise", "SELECT * FROM users; DROP TABLE users", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReadOnly(tt.query); got != tt.want {
				t.Errorf("IsReadOnly(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}
