/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package knowledge

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"pgedge-nlsql/internal/embedding"
	"pgedge-nlsql/internal/fragments"
	"pgedge-nlsql/internal/logging"
)

// Store is the schema knowledge store: an embedded SQLite similarity
// index over schema fragments. Inserts and searches may run
// concurrently; the RWMutex plus WAL journaling keep readers safe
// during appends. Eventual consistency between concurrent requests is
// acceptable; strict read-after-write across requests is not promised.
type Store struct {
	db       *sql.DB
	provider embedding.Provider
	mu       sync.RWMutex
}

// Open opens or creates the knowledge store at path. The same
// embedding provider must be used for the life of the index.
func Open(path string, provider embedding.Provider) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}

	// WAL mode so concurrent searches tolerate index appends
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{db: db, provider: provider}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// createSchema creates the fragment index schema
func (s *Store) createSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS fragments (
        id TEXT PRIMARY KEY,
        fragment_type TEXT NOT NULL,
        text TEXT NOT NULL,
        table_name TEXT DEFAULT '',
        related_table TEXT DEFAULT '',
        term_name TEXT DEFAULT '',
        example_id TEXT DEFAULT '',
        priority INTEGER NOT NULL,
        embedding BLOB NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_fragments_type ON fragments(fragment_type);
    CREATE INDEX IF NOT EXISTS idx_fragments_table ON fragments(table_name);
    CREATE INDEX IF NOT EXISTS idx_fragments_example ON fragments(example_id);
    `

	_, err := s.db.Exec(schema)
	return err
}

// Index embeds and stores the given fragments, returning their IDs in
// input order. Fragments without an ID are assigned one. The insert is
// transactional: either all fragments land or none do.
func (s *Store) Index(ctx context.Context, frags []fragments.SchemaFragment) ([]string, error) {
	if len(frags) == 0 {
		return nil, nil
	}

	// Embed before taking the write lock; provider calls are slow and
	// must not block concurrent searches.
	vectors := make([][]float32, len(frags))
	for i := range frags {
		if !frags[i].Type.Valid() {
			return nil, fmt.Errorf("fragment %d has unknown type %q", i, frags[i].Type)
		}
		vec, err := s.provider.Embed(ctx, frags[i].Text)
		if err != nil {
			return nil, &RetrievalError{Op: "index embedding", Err: err}
		}
		vectors[i] = vec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
        INSERT INTO fragments (
            id, fragment_type, text, table_name, related_table,
            term_name, example_id, priority, embedding
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, len(frags))
	for i := range frags {
		frag := &frags[i]
		if frag.ID == "" {
			frag.ID = uuid.NewString()
		}
		ids[i] = frag.ID

		_, err := stmt.Exec(
			frag.ID,
			string(frag.Type),
			frag.Text,
			frag.TableName(),
			frag.RelatedTable(),
			frag.TermName(),
			frag.ExampleID(),
			frag.PriorityWeight(),
			serializeEmbedding(vectors[i]),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert fragment %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logging.Info("fragments indexed", "count", len(frags))
	return ids, nil
}

// Search embeds the query and returns the nearest fragments above the
// score threshold, restricted by any type/table filters. When ReRank
// is set, twice the limit of candidates is collected first so high
// priority fragments with middling similarity can still be promoted.
func (s *Store) Search(ctx context.Context, req SearchRequest) ([]RetrievalResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if req.Limit <= 0 {
		return nil, fmt.Errorf("search limit must be positive")
	}

	queryVec, err := s.provider.Embed(ctx, req.Query)
	if err != nil {
		return nil, &RetrievalError{Op: "query embedding", Err: err}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
        SELECT id, fragment_type, text, table_name, related_table,
               term_name, example_id, embedding
        FROM fragments
        WHERE 1=1
    `
	args := []interface{}{}

	if len(req.FragmentTypes) > 0 {
		placeholders := make([]string, len(req.FragmentTypes))
		for i, ft := range req.FragmentTypes {
			placeholders[i] = "?"
			args = append(args, string(ft))
		}
		query += fmt.Sprintf(" AND fragment_type IN (%s)", strings.Join(placeholders, ", "))
	}

	if len(req.TableNames) > 0 {
		placeholders := make([]string, len(req.TableNames))
		for i, name := range req.TableNames {
			placeholders[i] = "?"
			args = append(args, name)
		}
		in := strings.Join(placeholders, ", ")
		if req.MatchRelatedTable {
			for _, name := range req.TableNames {
				args = append(args, name)
			}
			query += fmt.Sprintf(" AND (table_name IN (%s) OR related_table IN (%s))", in, in)
		} else {
			query += fmt.Sprintf(" AND table_name IN (%s)", in)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &RetrievalError{Op: "index scan", Err: err}
	}
	defer rows.Close()

	var results []RetrievalResult

	for rows.Next() {
		var id, fragType, text, tableName, relatedTable, termName, exampleID string
		var embBlob []byte

		if err := rows.Scan(&id, &fragType, &text, &tableName, &relatedTable,
			&termName, &exampleID, &embBlob); err != nil {
			// A single corrupt row must not fail the whole search
			logging.Warn("skipping unreadable fragment row", "error", err.Error())
			continue
		}

		docVec := deserializeEmbedding(embBlob)
		if len(docVec) == 0 {
			continue
		}

		similarity := cosineSimilarity(queryVec, docVec)
		if similarity < req.ScoreThreshold {
			continue
		}

		ft := fragments.FragmentType(fragType)
		results = append(results, RetrievalResult{
			Fragment: fragments.SchemaFragment{
				ID:       id,
				Type:     ft,
				Text:     text,
				Metadata: fragments.MetadataFor(ft, tableName, relatedTable, termName, exampleID),
			},
			Similarity: similarity,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &RetrievalError{Op: "index scan", Err: err}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if req.ReRank {
		candidates := req.Limit * 2
		if len(results) > candidates {
			results = results[:candidates]
		}
		results = ReRank(results)
	}

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	logging.Debug("knowledge search complete",
		"query_len", len(req.Query), "results", len(results),
		"rerank", req.ReRank)

	return results, nil
}

// DeleteFragment removes a single fragment by ID. Used to clean up the
// index entry when an example append cannot complete.
func (s *Store) DeleteFragment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM fragments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete fragment: %w", err)
	}
	return nil
}

// ClearSchemaFragments removes every fragment except few_shot_example
// entries. A schema re-index rebuilds structural knowledge but must
// never discard the confirmed-example feedback loop.
func (s *Store) ClearSchemaFragments(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM fragments WHERE fragment_type != ?",
		string(fragments.TypeFewShotExample))
	if err != nil {
		return 0, fmt.Errorf("failed to clear schema fragments: %w", err)
	}

	return result.RowsAffected()
}

// Stats returns fragment counts per type for observability
func (s *Store) Stats(ctx context.Context) (map[fragments.FragmentType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
        SELECT fragment_type, COUNT(*)
        FROM fragments
        GROUP BY fragment_type
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[fragments.FragmentType]int)
	for rows.Next() {
		var ft string
		var count int
		if err := rows.Scan(&ft, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats[fragments.FragmentType(ft)] = count
	}

	return stats, rows.Err()
}

// serializeEmbedding converts a float32 slice to bytes
func serializeEmbedding(embedding []float32) []byte {
	buf := make([]byte, len(embedding)*4)
	for i, v := range embedding {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeEmbedding converts bytes back to a float32 slice
func deserializeEmbedding(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}

	embedding := make([]float32, len(data)/4)
	for i := range embedding {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		embedding[i] = math.Float32frombits(bits)
	}
	return embedding
}

// cosineSimilarity computes cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
