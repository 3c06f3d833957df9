/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package router

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(DefaultRules())
	if err != nil {
		t.Fatalf("failed to create router: %v", err)
	}
	return r
}

func TestClassify(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		text string
		want QueryType
	}{
		// Direct table requests
		{"show me all projects", QueryDatabase},
		{"fetch users", QueryDatabase},
		{"get me the orders", QueryDatabase},
		{"list approvals", QueryDatabase},

		// Short texts naming schema vocabulary
		{"current inventory", QueryDatabase},
		{"projects overdue?", QueryDatabase},

		// Keyword density: "how many" plus an identifier-like token
		{"how many ran_projects", QueryDatabase},
		{"what is the total count of rows", QueryDatabase},
		{"sum the budget column", QueryDatabase},

		// Document questions
		{"what does this document say about warranty", QueryDocument},
		{"summarize the attached pdf", QueryDocument},
		{"according to the contract, who pays shipping", QueryDocument},

		// Conversation
		{"hello", QueryChat},
		{"what can you do", QueryChat},
		{"thanks, that was helpful", QueryChat},
		{"", QueryChat},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := r.Classify(tt.text); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyOrderDatabaseBeatsDocument(t *testing.T) {
	r := newTestRouter(t)

	// Text carrying both data and document signals routes to the
	// database flow because the data rules come first
	text := "how many rows does the documents table have"
	if got := r.Classify(text); got != QueryDatabase {
		t.Errorf("Classify(%q) = %s, want %s", text, got, QueryDatabase)
	}
}

func TestClassifyKeywordWordBoundaries(t *testing.T) {
	r := newTestRouter(t)

	// "top" must not fire inside "laptops", "file" not inside "profile"
	if got := r.Classify("I love my new laptops and my profile picture"); got != QueryChat {
		t.Errorf("substring keyword match leaked: got %s", got)
	}
}

func TestClassifyDirectPatternRejectsProse(t *testing.T) {
	r := newTestRouter(t)

	// An imperative verb followed by prose is not a table request
	if got := r.Classify("show me how to bake sourdough bread at home"); got == QueryDatabase {
		t.Error("prose after a data verb classified as database")
	}
}

func TestSetRulesRejectsInvalid(t *testing.T) {
	r := newTestRouter(t)

	if err := r.SetRules(&Rules{}); err == nil {
		t.Error("expected error for empty decision table")
	}
	if err := r.SetRules(nil); err == nil {
		t.Error("expected error for nil rules")
	}

	// The previous table must survive the failed swap
	if got := r.Classify("show me all projects"); got != QueryDatabase {
		t.Errorf("router lost its rules after rejected SetRules: got %s", got)
	}
}

func TestLoadRulesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	content := `
version: 2
data_verbs: ["show", "fetch"]
data_keywords: ["how many", "count"]
domain_keywords: ["shipments"]
document_keywords: ["manifest"]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	r, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}

	if got := r.Classify("recent shipments"); got != QueryDatabase {
		t.Errorf("custom domain keyword not honored: got %s", got)
	}
	if got := r.Classify("check the manifest for errors"); got != QueryDocument {
		t.Errorf("custom document keyword not honored: got %s", got)
	}
	// Built-in defaults must not leak into a custom table
	if got := r.Classify("summarize the attached pdf"); got != QueryChat {
		t.Errorf("default keywords leaked into custom rules: got %s", got)
	}
}

func TestLoadRulesFileErrors(t *testing.T) {
	if _, err := LoadRulesFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("data_verbs: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := LoadRulesFile(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestRulesWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	initial := `
version: 1
data_verbs: ["show"]
data_keywords: ["count"]
domain_keywords: ["projects"]
document_keywords: ["document"]
`
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	r, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}

	watcher, err := NewRulesWatcher(path, r)
	if err != nil {
		t.Fatalf("NewRulesWatcher failed: %v", err)
	}
	watcher.Start()
	defer watcher.Stop()

	if got := r.Classify("recent shipments"); got != QueryChat {
		t.Fatalf("precondition failed: got %s before reload", got)
	}

	updated := `
version: 2
data_verbs: ["show"]
data_keywords: ["count"]
domain_keywords: ["projects", "shipments"]
document_keywords: ["document"]
`
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatalf("failed to update rules file: %v", err)
	}

	// Reload happens after a 100ms debounce; poll rather than sleep a
	// fixed interval
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if r.Classify("recent shipments") == QueryDatabase {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("rules were not reloaded after file change")
}

func TestRulesWatcherKeepsOldRulesOnBrokenEdit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	initial := `
version: 1
data_verbs: ["show"]
data_keywords: ["count"]
domain_keywords: ["projects"]
document_keywords: ["document"]
`
	if err := os.WriteFile(path, []byte(initial), 0644); err != nil {
		t.Fatalf("failed to write rules file: %v", err)
	}

	r, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile failed: %v", err)
	}

	watcher, err := NewRulesWatcher(path, r)
	if err != nil {
		t.Fatalf("NewRulesWatcher failed: %v", err)
	}
	watcher.Start()
	defer watcher.Stop()

	if err := os.WriteFile(path, []byte("data_verbs: [broken"), 0644); err != nil {
		t.Fatalf("failed to write broken rules: %v", err)
	}

	// Give the debounced reload time to run, then confirm the old
	// table is still active
	time.Sleep(500 * time.Millisecond)
	if got := r.Classify("recent projects"); got != QueryDatabase {
		t.Errorf("router lost its rules after broken edit: got %s", got)
	}
}
