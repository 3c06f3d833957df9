/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package fragments

import (
	"testing"
)

func TestPriorityWeights(t *testing.T) {
	// Structural knowledge must strictly outrank descriptive knowledge.
	structural := []FragmentType{TypeRelationship, TypeBusinessRule}
	descriptive := []FragmentType{TypeColumns, TypeEnum, TypeSchemaOverview}

	for _, s := range structural {
		for _, d := range descriptive {
			if s.PriorityWeight() <= d.PriorityWeight() {
				t.Errorf("%s weight %d should exceed %s weight %d",
					s, s.PriorityWeight(), d, d.PriorityWeight())
			}
		}
	}
}

func TestMaxPriorityWeight(t *testing.T) {
	all := []FragmentType{
		TypeTableOverview, TypeColumns, TypeRelationship, TypeEnum,
		TypeBusinessRule, TypeSchemaOverview, TypeFewShotExample,
	}
	max := 0
	for _, ft := range all {
		if ft.PriorityWeight() > max {
			max = ft.PriorityWeight()
		}
	}
	if max != MaxPriorityWeight {
		t.Errorf("MaxPriorityWeight is %d but largest actual weight is %d",
			MaxPriorityWeight, max)
	}
}

func TestFragmentTypeValid(t *testing.T) {
	tests := []struct {
		ft    FragmentType
		valid bool
	}{
		{TypeTableOverview, true},
		{TypeRelationship, true},
		{TypeFewShotExample, true},
		{FragmentType("chunk"), false},
		{FragmentType(""), false},
	}

	for _, tt := range tests {
		if got := tt.ft.Valid(); got != tt.valid {
			t.Errorf("Valid(%q) = %v, want %v", tt.ft, got, tt.valid)
		}
	}
}

func TestMetadataAccessors(t *testing.T) {
	tests := []struct {
		name      string
		frag      SchemaFragment
		tableName string
		related   string
		termName  string
		exampleID string
	}{
		{
			name: "table overview",
			frag: SchemaFragment{
				Type:     TypeTableOverview,
				Metadata: TableMetadata{TableName: "projects"},
			},
			tableName: "projects",
		},
		{
			name: "relationship",
			frag: SchemaFragment{
				Type:     TypeRelationship,
				Metadata: RelationshipMetadata{TableName: "orders", RelatedTable: "users"},
			},
			tableName: "orders",
			related:   "users",
		},
		{
			name: "enum",
			frag: SchemaFragment{
				Type:     TypeEnum,
				Metadata: EnumMetadata{TableName: "projects", TermName: "status"},
			},
			tableName: "projects",
			termName:  "status",
		},
		{
			name: "global business rule",
			frag: SchemaFragment{
				Type:     TypeBusinessRule,
				Metadata: BusinessRuleMetadata{TermName: "active_only"},
			},
			termName: "active_only",
		},
		{
			name: "few shot example",
			frag: SchemaFragment{
				Type:     TypeFewShotExample,
				Metadata: ExampleMetadata{ExampleID: "ex_123"},
			},
			exampleID: "ex_123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frag.TableName(); got != tt.tableName {
				t.Errorf("TableName() = %q, want %q", got, tt.tableName)
			}
			if got := tt.frag.RelatedTable(); got != tt.related {
				t.Errorf("RelatedTable() = %q, want %q", got, tt.related)
			}
			if got := tt.frag.TermName(); got != tt.termName {
				t.Errorf("TermName() = %q, want %q", got, tt.termName)
			}
			if got := tt.frag.ExampleID(); got != tt.exampleID {
				t.Errorf("ExampleID() = %q, want %q", got, tt.exampleID)
			}
		})
	}
}

func TestMetadataForRoundTrip(t *testing.T) {
	tests := []struct {
		ft   FragmentType
		meta Metadata
	}{
		{TypeTableOverview, TableMetadata{TableName: "users"}},
		{TypeColumns, ColumnsMetadata{TableName: "users"}},
		{TypeRelationship, RelationshipMetadata{TableName: "orders", RelatedTable: "users"}},
		{TypeEnum, EnumMetadata{TableName: "orders", TermName: "state"}},
		{TypeBusinessRule, BusinessRuleMetadata{TableName: "", TermName: "fiscal_year"}},
		{TypeSchemaOverview, SchemaOverviewMetadata{}},
		{TypeFewShotExample, ExampleMetadata{ExampleID: "ex_1"}},
	}

	for _, tt := range tests {
		frag := SchemaFragment{Type: tt.ft, Metadata: tt.meta}
		rebuilt := MetadataFor(tt.ft, frag.TableName(), frag.RelatedTable(),
			frag.TermName(), frag.ExampleID())
		if rebuilt != tt.meta {
			t.Errorf("MetadataFor(%s) = %#v, want %#v", tt.ft, rebuilt, tt.meta)
		}
	}
}

func TestExampleTextDeterministic(t *testing.T) {
	a := ExampleText("count users", "SELECT COUNT(*) FROM users")
	b := ExampleText("count users", "SELECT COUNT(*) FROM users")
	if a != b {
		t.Error("ExampleText must be deterministic for identical input")
	}
	if a == "" {
		t.Error("ExampleText returned empty string")
	}
}
