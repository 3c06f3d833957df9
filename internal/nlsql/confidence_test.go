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
	"math"
	"testing"
)

func TestConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   ConfidenceInputs
		want float64
	}{
		{
			name: "no signal either way",
			in:   ConfidenceInputs{},
			want: 0.5,
		},
		{
			name: "schema context only",
			in:   ConfidenceInputs{HasSchemaContext: true},
			want: 0.7,
		},
		{
			name: "relationships without a join in the query",
			in:   ConfidenceInputs{HasSchemaContext: true, HasRelationshipContext: true},
			want: 0.7,
		},
		{
			name: "full context with join",
			in: ConfidenceInputs{
				HasSchemaContext:       true,
				HasRelationshipContext: true,
				HasBusinessRuleContext: true,
				QueryHasJoin:           true,
			},
			want: 1.0,
		},
		{
			name: "validation failure",
			in:   ConfidenceInputs{HasSchemaContext: true, ValidationErrors: 2},
			want: 0.4,
		},
		{
			name: "generated blind",
			in:   ConfidenceInputs{NoContext: true},
			want: 0.1,
		},
		{
			name: "blind and invalid clamps at zero",
			in:   ConfidenceInputs{NoContext: true, ValidationErrors: 1},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.in)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Confidence = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestConfidenceBounds(t *testing.T) {
	// Every combination of inputs stays inside [0, 1]
	bools := []bool{false, true}
	for _, schema := range bools {
		for _, rel := range bools {
			for _, rule := range bools {
				for _, join := range bools {
					for _, none := range bools {
						for _, errs := range []int{0, 1, 5} {
							got := Confidence(ConfidenceInputs{
								HasSchemaContext:       schema,
								HasRelationshipContext: rel,
								HasBusinessRuleContext: rule,
								QueryHasJoin:           join,
								ValidationErrors:       errs,
								NoContext:              none,
							})
							if got < 0 || got > 1 {
								t.Fatalf("confidence %f out of bounds", got)
							}
						}
					}
				}
			}
		}
	}
}
