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
	"context"
	"fmt"

	"pgedge-nlsql/internal/examples"
	"pgedge-nlsql/internal/knowledge"
	"pgedge-nlsql/internal/llm"
	"pgedge-nlsql/internal/logging"
)

// errorMarker prefixes the query field when generation itself failed,
// so callers and logs can never mistake it for runnable SQL
const errorMarker = "-- ERROR:"

// Generator runs the five-stage NL-to-SQL pipeline. It is stateless
// between requests; the shared stores carry all durable state and are
// safe for concurrent use.
type Generator struct {
	kb        *knowledge.Store
	examples  *examples.Store
	inference llm.Client
	config    Config
}

// NewGenerator wires the pipeline's collaborators. examples may be nil
// when no feedback store is configured.
func NewGenerator(kb *knowledge.Store, ex *examples.Store, inference llm.Client, config Config) *Generator {
	config.applyDefaults()
	return &Generator{
		kb:        kb,
		examples:  ex,
		inference: inference,
		config:    config,
	}
}

// Generate turns a question into a SQL query. The stages run strictly
// in order; retrieval failures degrade the context but generation
// still runs, while an inference failure or cancellation terminates
// the request. Generate never returns an error: every outcome,
// including failure, is encoded in the result so the caller can decide
// what to do next.
func (g *Generator) Generate(ctx context.Context, question string, validate bool) (result GenerationResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("generation panicked", "panic", fmt.Sprintf("%v", r))
			result = g.failed(StateRouted, fmt.Errorf("internal error: %v", r))
		}
	}()

	state := StateRouted

	// Stage 1: table identification
	tables, err := g.identifyTables(ctx, question)
	if err != nil {
		// Retrieval failure means "no context available", not abort
		logging.Warn("table identification degraded to no context", "error", err.Error())
		tables = nil
	}
	if ctx.Err() != nil {
		return g.failed(state, ctx.Err())
	}
	state = StateTablesIdentified

	// Stage 2: context assembly
	qc := g.assembleContext(ctx, question, tables)
	if ctx.Err() != nil {
		return g.failed(state, ctx.Err())
	}
	state = StateContextAssembled

	// Stage 3: example retrieval
	g.retrieveExamples(ctx, question, qc)
	if ctx.Err() != nil {
		return g.failed(state, ctx.Err())
	}

	// Stage 4: prompt assembly
	prompt := buildPrompt(question, qc)
	state = StatePromptBuilt

	// Stage 5: generation, cleanup, validation, confidence
	raw, err := g.inference.Complete(ctx, llm.Request{
		System:      systemInstructions,
		Prompt:      prompt,
		Temperature: g.config.Temperature,
		MaxTokens:   g.config.MaxTokens,
	})
	if err != nil {
		logging.Error("inference call failed", "error", err.Error())
		failure := g.failed(state, err)
		failure.RetrievedContext = qc.summary()
		return failure
	}
	state = StateGenerated

	query := CleanSQL(raw)

	var validationErrors []string
	if validate {
		validationErrors = Validate(query)
		state = StateValidated
	}

	confidence := Confidence(confidenceInputs(qc, query, len(validationErrors)))

	logging.Info("query generated",
		"state", string(state),
		"tables", len(qc.tables),
		"examples", len(qc.examples),
		"validation_errors", len(validationErrors),
		"confidence", confidence)

	return GenerationResult{
		Query:            query,
		Confidence:       confidence,
		RetrievedContext: qc.summary(),
		ExecutionReady:   validate && len(validationErrors) == 0,
		Errors:           validationErrors,
		State:            StateDone,
	}
}

// failed builds the terminal result for a request that could not
// complete. The query carries an explicit error marker so it can never
// be executed by mistake.
func (g *Generator) failed(lastState State, err error) GenerationResult {
	return GenerationResult{
		Query:          fmt.Sprintf("%s generation failed after %s: %v", errorMarker, lastState, err),
		Confidence:     0,
		ExecutionReady: false,
		Errors:         []string{err.Error()},
		State:          StateFailed,
	}
}
