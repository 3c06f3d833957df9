/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package introspect reads table, column, foreign-key and enum
// metadata from a Postgres database and renders it into the knowledge
// fragments the retrieval store indexes.
package introspect

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pgedge-nlsql/internal/logging"
)

// TableInfo describes one introspected table
type TableInfo struct {
	Schema      string
	Name        string
	Description string
	Columns     []ColumnInfo
}

// ColumnInfo describes one column of an introspected table
type ColumnInfo struct {
	Name         string
	DataType     string
	Nullable     bool
	Description  string
	IsPrimaryKey bool
	FKReference  string // "schema.table.column" when a foreign key, else empty
}

// EnumInfo describes one enum type and where it is used
type EnumInfo struct {
	TypeName string
	Labels   []string
	Table    string
	Column   string
}

// Snapshot is one consistent read of the database's schema metadata
type Snapshot struct {
	Database string
	Tables   []TableInfo
	Enums    []EnumInfo
}

// Service introspects a Postgres database over a pgx pool
type Service struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connString and verifies connectivity
func Connect(ctx context.Context, connString string) (*Service, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Service{pool: pool}, nil
}

// Close releases the connection pool
func (s *Service) Close() {
	s.pool.Close()
}

// tableQuery walks pg_catalog directly rather than information_schema
// so table and column comments come along for free
const tableQuery = `
    WITH table_comments AS (
        SELECT
            n.nspname AS schema_name,
            c.relname AS table_name,
            COALESCE(obj_description(c.oid), '') AS table_description
        FROM pg_class c
        JOIN pg_namespace n ON n.oid = c.relnamespace
        WHERE c.relkind IN ('r', 'v', 'm')
            AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
    ),
    column_info AS (
        SELECT
            n.nspname AS schema_name,
            c.relname AS table_name,
            a.attname AS column_name,
            pg_catalog.format_type(a.atttypid, a.atttypmod) AS data_type,
            NOT a.attnotnull AS is_nullable,
            COALESCE(col_description(c.oid, a.attnum), '') AS column_description,
            a.attnum AS column_num
        FROM pg_class c
        JOIN pg_namespace n ON n.oid = c.relnamespace
        JOIN pg_attribute a ON a.attrelid = c.oid
        WHERE c.relkind IN ('r', 'v', 'm')
            AND n.nspname NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
            AND a.attnum > 0
            AND NOT a.attisdropped
    ),
    pk_columns AS (
        SELECT
            n.nspname AS schema_name,
            c.relname AS table_name,
            a.attname AS column_name
        FROM pg_constraint con
        JOIN pg_class c ON c.oid = con.conrelid
        JOIN pg_namespace n ON n.oid = c.relnamespace
        JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(con.conkey)
        WHERE con.contype = 'p'
    ),
    fk_columns AS (
        SELECT
            n.nspname AS schema_name,
            c.relname AS table_name,
            a.attname AS column_name,
            fn.nspname || '.' || fc.relname || '.' || fa.attname AS fk_reference
        FROM pg_constraint con
        JOIN pg_class c ON c.oid = con.conrelid
        JOIN pg_namespace n ON n.oid = c.relnamespace
        JOIN pg_class fc ON fc.oid = con.confrelid
        JOIN pg_namespace fn ON fn.oid = fc.relnamespace
        JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS cols(col_num, ref_num, ord) ON true
        JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = cols.col_num
        JOIN pg_attribute fa ON fa.attrelid = fc.oid AND fa.attnum = cols.ref_num
        WHERE con.contype = 'f'
    )
    SELECT
        tc.schema_name,
        tc.table_name,
        tc.table_description,
        ci.column_name,
        ci.data_type,
        ci.is_nullable,
        ci.column_description,
        CASE WHEN pk.column_name IS NOT NULL THEN true ELSE false END AS is_primary_key,
        COALESCE(fk.fk_reference, '') AS fk_reference
    FROM table_comments tc
    JOIN column_info ci ON tc.schema_name = ci.schema_name AND tc.table_name = ci.table_name
    LEFT JOIN pk_columns pk ON ci.schema_name = pk.schema_name AND ci.table_name = pk.table_name AND ci.column_name = pk.column_name
    LEFT JOIN fk_columns fk ON ci.schema_name = fk.schema_name AND ci.table_name = fk.table_name AND ci.column_name = fk.column_name
    ORDER BY tc.schema_name, tc.table_name, ci.column_num
`

// enumQuery resolves enum types to the table columns that use them
const enumQuery = `
    SELECT
        t.typname AS type_name,
        array_agg(e.enumlabel ORDER BY e.enumsortorder) AS labels,
        COALESCE(c.relname, '') AS table_name,
        COALESCE(a.attname, '') AS column_name
    FROM pg_type t
    JOIN pg_enum e ON e.enumtypid = t.oid
    LEFT JOIN pg_attribute a ON a.atttypid = t.oid AND NOT a.attisdropped AND a.attnum > 0
    LEFT JOIN pg_class c ON c.oid = a.attrelid AND c.relkind = 'r'
    GROUP BY t.typname, c.relname, a.attname
    ORDER BY t.typname
`

// Snapshot reads the complete schema metadata
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	snap := &Snapshot{}

	if err := s.pool.QueryRow(ctx, "SELECT current_database()").Scan(&snap.Database); err != nil {
		return nil, fmt.Errorf("failed to resolve database name: %w", err)
	}

	rows, err := s.pool.Query(ctx, tableQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query schema metadata: %w", err)
	}
	defer rows.Close()

	tableIndex := make(map[string]int)

	for rows.Next() {
		var schemaName, tableName, tableDesc string
		var col ColumnInfo

		if err := rows.Scan(&schemaName, &tableName, &tableDesc,
			&col.Name, &col.DataType, &col.Nullable, &col.Description,
			&col.IsPrimaryKey, &col.FKReference); err != nil {
			return nil, fmt.Errorf("failed to scan metadata row: %w", err)
		}

		key := schemaName + "." + tableName
		idx, exists := tableIndex[key]
		if !exists {
			snap.Tables = append(snap.Tables, TableInfo{
				Schema:      schemaName,
				Name:        tableName,
				Description: tableDesc,
			})
			idx = len(snap.Tables) - 1
			tableIndex[key] = idx
		}
		snap.Tables[idx].Columns = append(snap.Tables[idx].Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read metadata rows: %w", err)
	}

	enumRows, err := s.pool.Query(ctx, enumQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query enum metadata: %w", err)
	}
	defer enumRows.Close()

	for enumRows.Next() {
		var e EnumInfo
		if err := enumRows.Scan(&e.TypeName, &e.Labels, &e.Table, &e.Column); err != nil {
			return nil, fmt.Errorf("failed to scan enum row: %w", err)
		}
		snap.Enums = append(snap.Enums, e)
	}
	if err := enumRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read enum rows: %w", err)
	}

	logging.Info("schema snapshot complete",
		"database", snap.Database,
		"tables", len(snap.Tables),
		"enums", len(snap.Enums),
		"duration_ms", time.Since(start).Milliseconds())

	return snap, nil
}
