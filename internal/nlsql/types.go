/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package nlsql turns a natural-language question into a SQL query. The
// pipeline runs five fixed stages: table identification, context
// assembly, example retrieval, prompt assembly, then generation with
// cleanup, validation and confidence scoring. Stages never run out of
// order and a stage failure terminates the request.
package nlsql

import (
	"pgedge-nlsql/internal/examples"
	"pgedge-nlsql/internal/fragments"
	"pgedge-nlsql/internal/knowledge"
)

// State tracks a request's progress through the pipeline. Transitions
// are forward-only; Failed is terminal.
type State string

const (
	StateRouted           State = "ROUTED"
	StateTablesIdentified State = "TABLES_IDENTIFIED"
	StateContextAssembled State = "CONTEXT_ASSEMBLED"
	StatePromptBuilt      State = "PROMPT_BUILT"
	StateGenerated        State = "GENERATED"
	StateValidated        State = "VALIDATED"
	StateDone             State = "DONE"
	StateFailed           State = "FAILED"
)

// ContextSummary records what knowledge fed a generation, for
// observability and confidence scoring.
type ContextSummary struct {
	Tables         []string                       `json:"tables"`
	FragmentCounts map[fragments.FragmentType]int `json:"fragment_counts"`
	ExampleIDs     []string                       `json:"example_ids"`
}

// Total returns the number of fragments and examples retrieved
func (c ContextSummary) Total() int {
	total := len(c.ExampleIDs)
	for _, n := range c.FragmentCounts {
		total += n
	}
	return total
}

// GenerationResult is the pipeline's output. It always carries enough
// structure for the caller to decide whether to execute, retry, or ask
// for clarification; callers never see a bare error from Generate.
type GenerationResult struct {
	Query            string         `json:"query"`
	Confidence       float64        `json:"confidence"`
	RetrievedContext ContextSummary `json:"retrieved_context"`
	ExecutionReady   bool           `json:"execution_ready"`
	Errors           []string       `json:"errors,omitempty"`
	State            State          `json:"state"`
}

// Config holds the pipeline's tunable parameters. The similarity
// thresholds are empirically tuned for the configured embedding model
// and do not transfer between models.
type Config struct {
	// TableScoreThreshold is the high-precision threshold for the
	// primary table-identification search
	TableScoreThreshold float64 `yaml:"table_score_threshold"`

	// TableVerifyThreshold is the lower threshold used to verify
	// keyword-extracted table candidates
	TableVerifyThreshold float64 `yaml:"table_verify_threshold"`

	// MaxTables caps how many tables one question may target
	MaxTables int `yaml:"max_tables"`

	// ContextLimit bounds the generic per-question fragment fetch.
	// Relationship fragments are exempt.
	ContextLimit int `yaml:"context_limit"`

	// ExampleLimit is how many confirmed examples to include
	ExampleLimit int `yaml:"example_limit"`

	// ExampleScoreThreshold favors recall: a false-positive example is
	// ignored noise, a missed one forfeits the accuracy gain
	ExampleScoreThreshold float64 `yaml:"example_score_threshold"`

	// Temperature for SQL generation; near-zero for determinism
	Temperature float64 `yaml:"temperature"`

	// MaxTokens bounds the generated output length
	MaxTokens int `yaml:"max_tokens"`
}

// DefaultConfig returns the tuned defaults
func DefaultConfig() Config {
	return Config{
		TableScoreThreshold:   0.55,
		TableVerifyThreshold:  0.35,
		MaxTables:             4,
		ContextLimit:          12,
		ExampleLimit:          3,
		ExampleScoreThreshold: 0.5,
		Temperature:           0.0,
		MaxTokens:             2048,
	}
}

// applyDefaults fills zero-valued fields so a partially specified
// config stays usable
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.TableScoreThreshold <= 0 {
		c.TableScoreThreshold = defaults.TableScoreThreshold
	}
	if c.TableVerifyThreshold <= 0 {
		c.TableVerifyThreshold = defaults.TableVerifyThreshold
	}
	if c.MaxTables <= 0 {
		c.MaxTables = defaults.MaxTables
	}
	if c.ContextLimit <= 0 {
		c.ContextLimit = defaults.ContextLimit
	}
	if c.ExampleLimit <= 0 {
		c.ExampleLimit = defaults.ExampleLimit
	}
	if c.ExampleScoreThreshold <= 0 {
		c.ExampleScoreThreshold = defaults.ExampleScoreThreshold
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaults.MaxTokens
	}
}

// queryContext is the assembled knowledge for one question
type queryContext struct {
	tables        []string
	schema        []knowledge.RetrievalResult
	relationships []knowledge.RetrievalResult
	businessRules []knowledge.RetrievalResult
	enums         []knowledge.RetrievalResult
	examples      []examples.SimilarExample
}

// empty reports whether no knowledge of any kind was retrieved
func (qc *queryContext) empty() bool {
	return len(qc.schema) == 0 && len(qc.relationships) == 0 &&
		len(qc.businessRules) == 0 && len(qc.enums) == 0 &&
		len(qc.examples) == 0
}

// summary builds the observability record for the result
func (qc *queryContext) summary() ContextSummary {
	counts := make(map[fragments.FragmentType]int)
	for _, group := range [][]knowledge.RetrievalResult{
		qc.schema, qc.relationships, qc.businessRules, qc.enums,
	} {
		for _, r := range group {
			counts[r.Fragment.Type]++
		}
	}

	exampleIDs := make([]string, 0, len(qc.examples))
	for _, ex := range qc.examples {
		exampleIDs = append(exampleIDs, ex.ID)
	}

	return ContextSummary{
		Tables:         qc.tables,
		FragmentCounts: counts,
		ExampleIDs:     exampleIDs,
	}
}
