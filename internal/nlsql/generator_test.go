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
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"pgedge-nlsql/internal/embedding"
	"pgedge-nlsql/internal/examples"
	"pgedge-nlsql/internal/fragments"
	"pgedge-nlsql/internal/knowledge"
	"pgedge-nlsql/internal/llm"
)

// fakeInference is a canned completion client
type fakeInference struct {
	response string
	err      error
	lastReq  llm.Request
}

func (f *fakeInference) Complete(_ context.Context, req llm.Request) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeInference) ModelName() string    { return "fake" }
func (f *fakeInference) ProviderName() string { return "fake" }

// testConfig lowers the similarity thresholds to suit the hashing
// embedder used in tests
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TableScoreThreshold = 0.1
	cfg.TableVerifyThreshold = 0.05
	cfg.ExampleScoreThreshold = 0.0
	return cfg
}

func newTestGenerator(t *testing.T, inference llm.Client) (*Generator, *knowledge.Store, *examples.Store) {
	t.Helper()

	dir := t.TempDir()
	kb, err := knowledge.Open(filepath.Join(dir, "knowledge.db"), embedding.NewLocalProvider())
	if err != nil {
		t.Fatalf("failed to open knowledge store: %v", err)
	}
	t.Cleanup(func() { kb.Close() })

	ex, err := examples.NewStore(dir, kb)
	if err != nil {
		t.Fatalf("failed to open example store: %v", err)
	}
	t.Cleanup(func() { ex.Close() })

	return NewGenerator(kb, ex, inference, testConfig()), kb, ex
}

func indexFixture(t *testing.T, kb *knowledge.Store) {
	t.Helper()

	frags := []fragments.SchemaFragment{
		{
			Type:     fragments.TypeTableOverview,
			Text:     "Table projects: construction projects with name, status and budget",
			Metadata: fragments.TableMetadata{TableName: "projects"},
		},
		{
			Type:     fragments.TypeColumns,
			Text:     "projects columns: id integer, name text, status text, budget numeric, owner_id integer",
			Metadata: fragments.ColumnsMetadata{TableName: "projects"},
		},
		{
			Type:     fragments.TypeRelationship,
			Text:     "projects.owner_id joins users.id: every project has exactly one owner",
			Metadata: fragments.RelationshipMetadata{TableName: "projects", RelatedTable: "users"},
		},
		{
			Type:     fragments.TypeEnum,
			Text:     "projects status allowed values: active, archived, pending",
			Metadata: fragments.EnumMetadata{TableName: "projects", TermName: "status"},
		},
		{
			Type:     fragments.TypeTableOverview,
			Text:     "Table users: registered user accounts with email and role",
			Metadata: fragments.TableMetadata{TableName: "users"},
		},
		{
			Type:     fragments.TypeBusinessRule,
			Text:     "business rule: archived projects must be excluded unless asked for explicitly",
			Metadata: fragments.BusinessRuleMetadata{TermName: "exclude_archived"},
		},
	}
	if _, err := kb.Index(context.Background(), frags); err != nil {
		t.Fatalf("failed to index fixture: %v", err)
	}
}

func TestGenerateHappyPath(t *testing.T) {
	fake := &fakeInference{
		response: "```sql\nSELECT p.name FROM projects p JOIN users u ON p.owner_id = u.id;\n```",
	}
	gen, kb, _ := newTestGenerator(t, fake)
	indexFixture(t, kb)

	result := gen.Generate(context.Background(), "show me all projects with their owners", true)

	if result.State != StateDone {
		t.Fatalf("state = %s, want %s (errors: %v)", result.State, StateDone, result.Errors)
	}
	if !result.ExecutionReady {
		t.Errorf("expected execution-ready result, errors: %v", result.Errors)
	}
	if result.Query != "SELECT p.name FROM projects p JOIN users u ON p.owner_id = u.id" {
		t.Errorf("unexpected cleaned query: %q", result.Query)
	}
	if result.Confidence < 0.8 {
		t.Errorf("confidence = %f, want high with full context", result.Confidence)
	}

	found := false
	for _, table := range result.RetrievedContext.Tables {
		if table == "projects" {
			found = true
		}
	}
	if !found {
		t.Errorf("retrieved context missing projects table: %v", result.RetrievedContext.Tables)
	}
}

func TestGenerateIdentifiesTableFromOverview(t *testing.T) {
	fake := &fakeInference{response: "SELECT * FROM projects"}
	gen, kb, _ := newTestGenerator(t, fake)

	if _, err := kb.Index(context.Background(), []fragments.SchemaFragment{{
		Type:     fragments.TypeTableOverview,
		Text:     "Table projects: construction projects with name, status and budget",
		Metadata: fragments.TableMetadata{TableName: "projects"},
	}}); err != nil {
		t.Fatalf("failed to index fragment: %v", err)
	}

	result := gen.Generate(context.Background(), "show me all projects", true)

	want := []string{"projects"}
	if len(result.RetrievedContext.Tables) != 1 || result.RetrievedContext.Tables[0] != want[0] {
		t.Errorf("identified tables = %v, want %v", result.RetrievedContext.Tables, want)
	}
}

func TestAssembleContextFarSideRelationship(t *testing.T) {
	fake := &fakeInference{response: "SELECT 1"}
	gen, kb, _ := newTestGenerator(t, fake)
	indexFixture(t, kb)

	// The fixture joins projects.owner_id to users.id and is keyed to
	// projects; identifying only the referenced table must still fetch
	// the join condition
	qc := gen.assembleContext(context.Background(),
		"how many projects does each user own", []string{"users"})

	if len(qc.relationships) != 1 {
		t.Fatalf("relationships = %d, want 1 (far-side table lost its join condition)", len(qc.relationships))
	}
	rel := qc.relationships[0].Fragment
	if rel.TableName() != "projects" || rel.RelatedTable() != "users" {
		t.Errorf("relationship = %s -> %s, want projects -> users",
			rel.TableName(), rel.RelatedTable())
	}
}

func TestGeneratePromptSectionOrder(t *testing.T) {
	fake := &fakeInference{response: "SELECT 1"}
	gen, kb, ex := newTestGenerator(t, fake)
	indexFixture(t, kb)

	ctx := context.Background()
	if _, err := ex.AddExample(ctx, "list active projects", "SELECT * FROM projects WHERE status = 'active'", ""); err != nil {
		t.Fatalf("AddExample failed: %v", err)
	}

	question := "show me all projects with their owners"
	gen.Generate(ctx, question, true)

	prompt := fake.lastReq.Prompt
	sections := []string{
		"Database Schema:",
		"Table Relationships",
		"Business Rules:",
		"Allowed Values:",
		"Verified Examples:",
		"Question: " + question,
	}

	last := -1
	for _, section := range sections {
		idx := strings.Index(prompt, section)
		if idx < 0 {
			t.Fatalf("prompt missing section %q:\n%s", section, prompt)
		}
		if idx < last {
			t.Errorf("section %q out of order", section)
		}
		last = idx
	}

	if !strings.HasSuffix(prompt, "SQL Query:") {
		t.Errorf("prompt must end with the generation cue, got tail %q", prompt[len(prompt)-30:])
	}
	if fake.lastReq.Temperature != 0.0 {
		t.Errorf("generation temperature = %f, want 0", fake.lastReq.Temperature)
	}
}

func TestGenerateInferenceFailure(t *testing.T) {
	fake := &fakeInference{err: errors.New("model overloaded")}
	gen, kb, _ := newTestGenerator(t, fake)
	indexFixture(t, kb)

	result := gen.Generate(context.Background(), "show me all projects", true)

	if result.State != StateFailed {
		t.Fatalf("state = %s, want %s", result.State, StateFailed)
	}
	if !strings.HasPrefix(result.Query, "-- ERROR:") {
		t.Errorf("failed result query must carry the error marker, got %q", result.Query)
	}
	if result.ExecutionReady {
		t.Error("failed result must not be execution-ready")
	}
	if result.Confidence != 0 {
		t.Errorf("failed result confidence = %f, want 0", result.Confidence)
	}
}

func TestGenerateValidationFailure(t *testing.T) {
	fake := &fakeInference{response: "SELECT * FROM x WHERE (a > 1"}
	gen, kb, _ := newTestGenerator(t, fake)
	indexFixture(t, kb)

	result := gen.Generate(context.Background(), "show me all projects", true)

	if result.State != StateDone {
		t.Fatalf("state = %s, want %s", result.State, StateDone)
	}
	if result.ExecutionReady {
		t.Error("query with validation errors must not be execution-ready")
	}

	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "unbalanced parentheses") {
			found = true
		}
	}
	if !found {
		t.Errorf("errors %v missing unbalanced-parentheses entry", result.Errors)
	}

	// The offending query is still returned for visibility
	if result.Query == "" {
		t.Error("invalid query text should still be surfaced")
	}
}

func TestGenerateWithoutValidation(t *testing.T) {
	fake := &fakeInference{response: "DROP TABLE users"}
	gen, kb, _ := newTestGenerator(t, fake)
	indexFixture(t, kb)

	result := gen.Generate(context.Background(), "show me all projects", false)

	if len(result.Errors) != 0 {
		t.Errorf("validation was skipped but errors = %v", result.Errors)
	}
	// An unvalidated query is never execution-ready
	if result.ExecutionReady {
		t.Error("unvalidated result must not be execution-ready")
	}
}

// failingProvider simulates an unavailable embedding service
type failingProvider struct{}

func (failingProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("connection refused")
}
func (failingProvider) Dimensions() int      { return 0 }
func (failingProvider) ModelName() string    { return "failing" }
func (failingProvider) ProviderName() string { return "failing" }

func TestGenerateProceedsWithoutContext(t *testing.T) {
	dir := t.TempDir()
	kb, err := knowledge.Open(filepath.Join(dir, "knowledge.db"), failingProvider{})
	if err != nil {
		t.Fatalf("failed to open knowledge store: %v", err)
	}
	defer kb.Close()

	fake := &fakeInference{response: "SELECT 1"}
	gen := NewGenerator(kb, nil, fake, testConfig())

	result := gen.Generate(context.Background(), "how many users", true)

	// Retrieval failure degrades confidence but does not abort
	if result.State != StateDone {
		t.Fatalf("state = %s, want %s", result.State, StateDone)
	}
	if result.Query != "SELECT 1" {
		t.Errorf("unexpected query: %q", result.Query)
	}
	if result.Confidence >= 0.5 {
		t.Errorf("confidence = %f, want heavy no-context penalty", result.Confidence)
	}
}

func TestGenerateCancellation(t *testing.T) {
	fake := &fakeInference{response: "SELECT 1"}
	gen, kb, _ := newTestGenerator(t, fake)
	indexFixture(t, kb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := gen.Generate(ctx, "show me all projects", true)
	if result.State != StateFailed {
		t.Errorf("cancelled request state = %s, want %s", result.State, StateFailed)
	}
}
