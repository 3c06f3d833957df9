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
	"fmt"
	"strings"

	"pgedge-nlsql/internal/fragments"
)

// Fragments renders a schema snapshot into knowledge fragments: one
// table_overview and one columns fragment per table, one relationship
// fragment per foreign key, one enum fragment per enum-typed column,
// and a single schema_overview listing every table.
func Fragments(snap *Snapshot) []fragments.SchemaFragment {
	var frags []fragments.SchemaFragment

	var tableNames []string
	for _, table := range snap.Tables {
		tableNames = append(tableNames, table.Name)

		frags = append(frags, fragments.SchemaFragment{
			Type:     fragments.TypeTableOverview,
			Text:     tableOverviewText(table),
			Metadata: fragments.TableMetadata{TableName: table.Name},
		})
		frags = append(frags, fragments.SchemaFragment{
			Type:     fragments.TypeColumns,
			Text:     columnsText(table),
			Metadata: fragments.ColumnsMetadata{TableName: table.Name},
		})

		for _, col := range table.Columns {
			if col.FKReference == "" {
				continue
			}
			related := relatedTableOf(col.FKReference)
			frags = append(frags, fragments.SchemaFragment{
				Type: fragments.TypeRelationship,
				Text: fmt.Sprintf("%s.%s joins %s: foreign key reference",
					table.Name, col.Name, col.FKReference),
				Metadata: fragments.RelationshipMetadata{
					TableName:    table.Name,
					RelatedTable: related,
				},
			})
		}
	}

	for _, e := range snap.Enums {
		if e.Table == "" || e.Column == "" {
			continue
		}
		frags = append(frags, fragments.SchemaFragment{
			Type: fragments.TypeEnum,
			Text: fmt.Sprintf("%s.%s allowed values (%s): %s",
				e.Table, e.Column, e.TypeName, strings.Join(e.Labels, ", ")),
			Metadata: fragments.EnumMetadata{
				TableName: e.Table,
				TermName:  e.TypeName,
			},
		})
	}

	if len(tableNames) > 0 {
		frags = append(frags, fragments.SchemaFragment{
			Type: fragments.TypeSchemaOverview,
			Text: fmt.Sprintf("Database %s contains tables: %s",
				snap.Database, strings.Join(tableNames, ", ")),
			Metadata: fragments.SchemaOverviewMetadata{},
		})
	}

	return frags
}

// tableOverviewText renders the one-line table summary used for table
// identification
func tableOverviewText(table TableInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Table %s", table.Name)
	if table.Description != "" {
		fmt.Fprintf(&b, ": %s", table.Description)
	}

	var colNames []string
	for _, col := range table.Columns {
		colNames = append(colNames, col.Name)
	}
	if len(colNames) > 0 {
		fmt.Fprintf(&b, " (columns: %s)", strings.Join(colNames, ", "))
	}

	return b.String()
}

// columnsText renders the detailed per-column description
func columnsText(table TableInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s columns:", table.Name)

	for _, col := range table.Columns {
		fmt.Fprintf(&b, "\n  %s %s", col.Name, col.DataType)
		if col.IsPrimaryKey {
			b.WriteString(" primary key")
		}
		if !col.Nullable {
			b.WriteString(" not null")
		}
		if col.FKReference != "" {
			fmt.Fprintf(&b, " references %s", col.FKReference)
		}
		if col.Description != "" {
			fmt.Fprintf(&b, " -- %s", col.Description)
		}
	}

	return b.String()
}

// relatedTableOf extracts the table name from a
// "schema.table.column" foreign-key reference
func relatedTableOf(fkReference string) string {
	parts := strings.Split(fkReference, ".")
	if len(parts) == 3 {
		return parts[1]
	}
	return fkReference
}
