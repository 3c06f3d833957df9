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
	"reflect"
	"testing"
)

func TestExtractTableCandidates(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     []string
	}{
		{
			name:     "from clause",
			question: "get everything from orders please",
			want:     []string{"orders"},
		},
		{
			name:     "in table phrase",
			question: "how many rows are in approvals table",
			want:     []string{"approvals"},
		},
		{
			name:     "underscored identifier",
			question: "how many ran_projects finished this year",
			want:     []string{"ran_projects"},
		},
		{
			name:     "records suffix",
			question: "show me the inventory records",
			want:     []string{"inventory"},
		},
		{
			name:     "stopwords filtered",
			question: "select from the list",
			want:     nil,
		},
		{
			name:     "deduplicated in discovery order",
			question: "from project_items in project_items table",
			want:     []string{"project_items"},
		},
		{
			name:     "nothing table-like",
			question: "hello there",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTableCandidates(tt.question)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractTableCandidates(%q) = %v, want %v", tt.question, got, tt.want)
			}
		})
	}
}
