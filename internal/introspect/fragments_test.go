/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package introspect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pgedge-nlsql/internal/fragments"
)

func snapshotFixture() *Snapshot {
	return &Snapshot{
		Database: "appdb",
		Tables: []TableInfo{
			{
				Schema:      "public",
				Name:        "projects",
				Description: "construction projects",
				Columns: []ColumnInfo{
					{Name: "id", DataType: "integer", IsPrimaryKey: true},
					{Name: "name", DataType: "text"},
					{Name: "status", DataType: "project_status"},
					{Name: "owner_id", DataType: "integer", Nullable: true, FKReference: "public.users.id"},
				},
			},
			{
				Schema: "public",
				Name:   "users",
				Columns: []ColumnInfo{
					{Name: "id", DataType: "integer", IsPrimaryKey: true},
					{Name: "email", DataType: "text", Description: "login address"},
				},
			},
		},
		Enums: []EnumInfo{
			{TypeName: "project_status", Labels: []string{"active", "archived"}, Table: "projects", Column: "status"},
			{TypeName: "orphan_enum", Labels: []string{"x"}},
		},
	}
}

func TestFragments(t *testing.T) {
	frags := Fragments(snapshotFixture())

	counts := make(map[fragments.FragmentType]int)
	for _, f := range frags {
		counts[f.Type]++
	}

	if counts[fragments.TypeTableOverview] != 2 {
		t.Errorf("table_overview count = %d, want 2", counts[fragments.TypeTableOverview])
	}
	if counts[fragments.TypeColumns] != 2 {
		t.Errorf("columns count = %d, want 2", counts[fragments.TypeColumns])
	}
	if counts[fragments.TypeRelationship] != 1 {
		t.Errorf("relationship count = %d, want 1", counts[fragments.TypeRelationship])
	}
	// Enums not bound to a column produce no fragment
	if counts[fragments.TypeEnum] != 1 {
		t.Errorf("enum count = %d, want 1", counts[fragments.TypeEnum])
	}
	if counts[fragments.TypeSchemaOverview] != 1 {
		t.Errorf("schema_overview count = %d, want 1", counts[fragments.TypeSchemaOverview])
	}
}

func TestFragmentTexts(t *testing.T) {
	frags := Fragments(snapshotFixture())

	byType := make(map[fragments.FragmentType][]fragments.SchemaFragment)
	for _, f := range frags {
		byType[f.Type] = append(byType[f.Type], f)
	}

	overview := byType[fragments.TypeTableOverview][0]
	if !strings.Contains(overview.Text, "Table projects: construction projects") {
		t.Errorf("overview text missing description: %q", overview.Text)
	}
	if !strings.Contains(overview.Text, "columns: id, name, status, owner_id") {
		t.Errorf("overview text missing column list: %q", overview.Text)
	}
	if overview.TableName() != "projects" {
		t.Errorf("overview table = %q, want projects", overview.TableName())
	}

	rel := byType[fragments.TypeRelationship][0]
	if !strings.Contains(rel.Text, "projects.owner_id joins public.users.id") {
		t.Errorf("relationship text = %q", rel.Text)
	}
	if rel.RelatedTable() != "users" {
		t.Errorf("related table = %q, want users", rel.RelatedTable())
	}

	cols := byType[fragments.TypeColumns][0]
	if !strings.Contains(cols.Text, "id integer primary key") {
		t.Errorf("columns text missing primary key marker: %q", cols.Text)
	}
	if !strings.Contains(cols.Text, "references public.users.id") {
		t.Errorf("columns text missing fk reference: %q", cols.Text)
	}

	enum := byType[fragments.TypeEnum][0]
	if !strings.Contains(enum.Text, "active, archived") {
		t.Errorf("enum text missing labels: %q", enum.Text)
	}

	schema := byType[fragments.TypeSchemaOverview][0]
	if !strings.Contains(schema.Text, "projects, users") {
		t.Errorf("schema overview missing table list: %q", schema.Text)
	}
}

func TestFragmentsEmptySnapshot(t *testing.T) {
	if frags := Fragments(&Snapshot{Database: "empty"}); len(frags) != 0 {
		t.Errorf("empty snapshot produced %d fragments", len(frags))
	}
}

func TestLoadBusinessRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
rules:
  - name: exclude_archived
    table: projects
    rule: archived projects must be excluded unless asked for explicitly
  - name: fiscal_year
    rule: the fiscal year starts in April
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	frags, err := LoadBusinessRules(path)
	if err != nil {
		t.Fatalf("LoadBusinessRules failed: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}

	if frags[0].Type != fragments.TypeBusinessRule {
		t.Errorf("fragment type = %s, want business_rule", frags[0].Type)
	}
	if frags[0].TableName() != "projects" {
		t.Errorf("table = %q, want projects", frags[0].TableName())
	}
	if !strings.HasPrefix(frags[0].Text, "business rule: ") {
		t.Errorf("rule text missing label: %q", frags[0].Text)
	}
	// Global rules carry no table association
	if frags[1].TableName() != "" {
		t.Errorf("global rule table = %q, want empty", frags[1].TableName())
	}
}

func TestLoadBusinessRulesErrors(t *testing.T) {
	if _, err := LoadBusinessRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - name: x\n"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := LoadBusinessRules(path); err == nil {
		t.Error("expected error for rule without text")
	}
}
