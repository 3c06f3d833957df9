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
	"time"
)

// FragmentType identifies the kind of knowledge a fragment carries.
type FragmentType string

const (
	// TypeTableOverview is a one-paragraph description of a table
	TypeTableOverview FragmentType = "table_overview"
	// TypeColumns is the column list of a table with types and comments
	TypeColumns FragmentType = "columns"
	// TypeRelationship is a join condition between two tables
	TypeRelationship FragmentType = "relationship"
	// TypeEnum is the set of allowed values for an enumerated column
	TypeEnum FragmentType = "enum"
	// TypeBusinessRule is a free-text rule that constrains generated queries
	TypeBusinessRule FragmentType = "business_rule"
	// TypeSchemaOverview is a single summary of the whole schema
	TypeSchemaOverview FragmentType = "schema_overview"
	// TypeFewShotExample is an embedded confirmed (question, query) pair
	TypeFewShotExample FragmentType = "few_shot_example"
)

// priorityWeights biases retrieval toward structurally critical
// knowledge: an incomplete join condition or a missed business rule
// produces worse SQL than a missing column comment.
var priorityWeights = map[FragmentType]int{
	TypeRelationship:   10,
	TypeBusinessRule:   9,
	TypeFewShotExample: 8,
	TypeTableOverview:  7,
	TypeEnum:           5,
	TypeColumns:        4,
	TypeSchemaOverview: 3,
}

// MaxPriorityWeight is the largest weight any fragment type carries.
const MaxPriorityWeight = 10

// Valid reports whether ft is one of the known fragment types.
func (ft FragmentType) Valid() bool {
	_, ok := priorityWeights[ft]
	return ok
}

// PriorityWeight returns the fixed ranking weight for this fragment
// type. Unknown types get 0 so they sort below everything real.
func (ft FragmentType) PriorityWeight() int {
	return priorityWeights[ft]
}

// Metadata is the tagged variant attached to a fragment. Each fragment
// type declares exactly the association keys it uses; there is no
// open-ended key/value bag.
type Metadata interface {
	fragmentMetadata()
}

// TableMetadata is attached to table_overview fragments.
type TableMetadata struct {
	TableName string
}

// ColumnsMetadata is attached to columns fragments.
type ColumnsMetadata struct {
	TableName string
}

// RelationshipMetadata is attached to relationship fragments and names
// both sides of the join.
type RelationshipMetadata struct {
	TableName    string
	RelatedTable string
}

// EnumMetadata is attached to enum fragments. TermName is the column
// or domain whose values are enumerated.
type EnumMetadata struct {
	TableName string
	TermName  string
}

// BusinessRuleMetadata is attached to business_rule fragments. Rules
// may be global, in which case TableName is empty.
type BusinessRuleMetadata struct {
	TableName string
	TermName  string
}

// SchemaOverviewMetadata is attached to the schema_overview fragment.
type SchemaOverviewMetadata struct{}

// ExampleMetadata is attached to few_shot_example fragments and holds
// the backing ConfirmedExample ID for reverse lookup.
type ExampleMetadata struct {
	ExampleID string
}

func (TableMetadata) fragmentMetadata()          {}
func (ColumnsMetadata) fragmentMetadata()        {}
func (RelationshipMetadata) fragmentMetadata()   {}
func (EnumMetadata) fragmentMetadata()           {}
func (BusinessRuleMetadata) fragmentMetadata()   {}
func (SchemaOverviewMetadata) fragmentMetadata() {}
func (ExampleMetadata) fragmentMetadata()        {}

// SchemaFragment is a single retrievable unit of schema or business
// knowledge. Fragments are immutable once indexed; a re-index run
// replaces the whole set.
type SchemaFragment struct {
	ID       string
	Type     FragmentType
	Text     string
	Metadata Metadata
}

// TableName returns the table this fragment is associated with, or ""
// for fragments that are not table-scoped.
func (f *SchemaFragment) TableName() string {
	switch m := f.Metadata.(type) {
	case TableMetadata:
		return m.TableName
	case ColumnsMetadata:
		return m.TableName
	case RelationshipMetadata:
		return m.TableName
	case EnumMetadata:
		return m.TableName
	case BusinessRuleMetadata:
		return m.TableName
	default:
		return ""
	}
}

// RelatedTable returns the far side of a relationship fragment, or "".
func (f *SchemaFragment) RelatedTable() string {
	if m, ok := f.Metadata.(RelationshipMetadata); ok {
		return m.RelatedTable
	}
	return ""
}

// TermName returns the term or rule name carried by enum and
// business_rule fragments, or "".
func (f *SchemaFragment) TermName() string {
	switch m := f.Metadata.(type) {
	case EnumMetadata:
		return m.TermName
	case BusinessRuleMetadata:
		return m.TermName
	default:
		return ""
	}
}

// ExampleID returns the backing confirmed-example ID for
// few_shot_example fragments, or "".
func (f *SchemaFragment) ExampleID() string {
	if m, ok := f.Metadata.(ExampleMetadata); ok {
		return m.ExampleID
	}
	return ""
}

// PriorityWeight returns the fragment's fixed ranking weight.
func (f *SchemaFragment) PriorityWeight() int {
	return f.Type.PriorityWeight()
}

// MetadataFor reconstructs the tagged variant for a fragment type from
// flat association keys, the inverse of the accessors above. Used by
// the knowledge store when loading fragments back out of the index.
func MetadataFor(ft FragmentType, tableName, relatedTable, termName, exampleID string) Metadata {
	switch ft {
	case TypeTableOverview:
		return TableMetadata{TableName: tableName}
	case TypeColumns:
		return ColumnsMetadata{TableName: tableName}
	case TypeRelationship:
		return RelationshipMetadata{TableName: tableName, RelatedTable: relatedTable}
	case TypeEnum:
		return EnumMetadata{TableName: tableName, TermName: termName}
	case TypeBusinessRule:
		return BusinessRuleMetadata{TableName: tableName, TermName: termName}
	case TypeSchemaOverview:
		return SchemaOverviewMetadata{}
	case TypeFewShotExample:
		return ExampleMetadata{ExampleID: exampleID}
	default:
		return nil
	}
}

// ConfirmedExample is a user-verified (question, correct query) pair.
// Examples are append-only: once confirmed they are never mutated.
type ConfirmedExample struct {
	ID          string    `json:"id"`
	Question    string    `json:"question"`
	Query       string    `json:"query"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExampleText builds the canonical embedded text for a confirmed
// example. Index-time and query-time text must be built identically or
// similarity scores against the fragment are meaningless.
func ExampleText(question, query string) string {
	return "Question: " + question + "\nVerified correct SQL: " + query
}
