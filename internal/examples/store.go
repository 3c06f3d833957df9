/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package examples

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"pgedge-nlsql/internal/fragments"
	"pgedge-nlsql/internal/knowledge"
	"pgedge-nlsql/internal/logging"
)

// SimilarExample is a confirmed example with its similarity to the
// question that retrieved it.
type SimilarExample struct {
	fragments.ConfirmedExample
	Similarity float64
}

// Store persists confirmed (question, correct query) pairs and indexes
// them as few_shot_example fragments in the knowledge store. The log
// is append-only: examples are never mutated after confirmation.
type Store struct {
	db *sql.DB
	kb *knowledge.Store
	mu sync.RWMutex
}

// NewStore opens or creates the example log under dataDir and binds it
// to the knowledge store used for similarity retrieval.
func NewStore(dataDir string, kb *knowledge.Store) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "examples.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open example log: %w", err)
	}

	// WAL mode so appends tolerate concurrent retrieval traffic
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db, kb: kb}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the append-only example table. seq preserves
// confirmation order independently of wall-clock timestamps.
func (s *Store) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS examples (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL UNIQUE,
        question TEXT NOT NULL,
        query TEXT NOT NULL,
        submitted_by TEXT DEFAULT '',
        created_at DATETIME NOT NULL
    );

    CREATE INDEX IF NOT EXISTS idx_examples_id ON examples(id);
    `

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the example log
func (s *Store) Close() error {
	return s.db.Close()
}

// AddExample appends a confirmed example to the durable log and
// immediately indexes its few_shot_example fragment. If indexing fails
// the log record is rolled back so the two stores never diverge.
func (s *Store) AddExample(ctx context.Context, question, query, submittedBy string) (string, error) {
	if question == "" || query == "" {
		return "", fmt.Errorf("question and query are both required")
	}

	example := fragments.ConfirmedExample{
		ID:          "ex_" + uuid.NewString(),
		Question:    question,
		Query:       query,
		SubmittedBy: submittedBy,
		CreatedAt:   time.Now().UTC(),
	}

	s.mu.Lock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO examples (id, question, query, submitted_by, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		example.ID, example.Question, example.Query, example.SubmittedBy, example.CreatedAt,
	)
	s.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to append example: %w", err)
	}

	_, err = s.kb.Index(ctx, []fragments.SchemaFragment{{
		Type:     fragments.TypeFewShotExample,
		Text:     fragments.ExampleText(question, query),
		Metadata: fragments.ExampleMetadata{ExampleID: example.ID},
	}})
	if err != nil {
		// Roll the log record back rather than leave an example that
		// can never be retrieved
		s.mu.Lock()
		if _, delErr := s.db.ExecContext(ctx, "DELETE FROM examples WHERE id = ?", example.ID); delErr != nil {
			logging.Error("failed to roll back unindexed example",
				"example_id", example.ID, "error", delErr.Error())
		}
		s.mu.Unlock()
		return "", fmt.Errorf("failed to index example: %w", err)
	}

	logging.Info("confirmed example stored", "example_id", example.ID)
	return example.ID, nil
}

// FindSimilar returns up to limit confirmed examples most similar to
// the question. Hits whose backing record is missing (for instance
// after log corruption) are dropped silently; a degraded example set
// is noise in the prompt, not an error.
func (s *Store) FindSimilar(ctx context.Context, question string, limit int, scoreThreshold float64) ([]SimilarExample, error) {
	results, err := s.kb.Search(ctx, knowledge.SearchRequest{
		Query:          question,
		Limit:          limit,
		ScoreThreshold: scoreThreshold,
		FragmentTypes:  []fragments.FragmentType{fragments.TypeFewShotExample},
	})
	if err != nil {
		return nil, err
	}

	similar := make([]SimilarExample, 0, len(results))
	for _, r := range results {
		exampleID := r.Fragment.ExampleID()
		if exampleID == "" {
			continue
		}

		example, err := s.getByID(ctx, exampleID)
		if err != nil {
			logging.Warn("dropping example hit with missing record",
				"example_id", exampleID, "error", err.Error())
			continue
		}

		similar = append(similar, SimilarExample{
			ConfirmedExample: *example,
			Similarity:       r.Similarity,
		})
	}

	return similar, nil
}

// getByID resolves one example record from the durable log
func (s *Store) getByID(ctx context.Context, id string) (*fragments.ConfirmedExample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var example fragments.ConfirmedExample
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question, query, submitted_by, created_at
         FROM examples WHERE id = ?`, id,
	).Scan(&example.ID, &example.Question, &example.Query,
		&example.SubmittedBy, &example.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("example not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query example: %w", err)
	}

	return &example, nil
}

// LoadAll returns every confirmed example in confirmation order.
// Records that fail to scan are skipped with a warning so one corrupt
// row cannot take the rest of the log down with it.
func (s *Store) LoadAll(ctx context.Context) ([]fragments.ConfirmedExample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
        SELECT id, question, query, submitted_by, created_at
        FROM examples
        ORDER BY seq
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query examples: %w", err)
	}
	defer rows.Close()

	var all []fragments.ConfirmedExample
	for rows.Next() {
		var example fragments.ConfirmedExample
		if err := rows.Scan(&example.ID, &example.Question, &example.Query,
			&example.SubmittedBy, &example.CreatedAt); err != nil {
			logging.Warn("skipping unreadable example record", "error", err.Error())
			continue
		}
		all = append(all, example)
	}

	return all, rows.Err()
}

// Count returns the number of confirmed examples in the log
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM examples").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count examples: %w", err)
	}
	return count, nil
}
