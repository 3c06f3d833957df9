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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the classifier's decision table. It is data, not code:
// deployments tune the keyword lists in a versioned YAML file without
// touching the router itself.
type Rules struct {
	Version int `yaml:"version"`

	// DataVerbs open a direct table request ("show me all projects")
	DataVerbs []string `yaml:"data_verbs"`

	// DataKeywords vote toward a data-retrieval classification; two or
	// more distinct hits classify the text as a database question
	DataKeywords []string `yaml:"data_keywords"`

	// DomainKeywords are table-name fragments and schema vocabulary
	// that classify very short texts as database questions outright
	DomainKeywords []string `yaml:"domain_keywords"`

	// DocumentKeywords route the text to the document Q&A flow
	DocumentKeywords []string `yaml:"document_keywords"`
}

// DefaultRules returns the built-in decision table. Deployments are
// expected to extend DomainKeywords with their own table names.
func DefaultRules() *Rules {
	return &Rules{
		Version: 1,
		DataVerbs: []string{
			"fetch", "get", "show", "retrieve", "select",
			"give me", "display", "list",
		},
		DataKeywords: []string{
			"how many", "count", "total", "sum", "average",
			"table", "tables", "database", "rows", "records",
			"column", "columns", "group by", "order by",
			"maximum", "minimum", "top", "latest", "oldest",
		},
		DomainKeywords: []string{
			"table", "database", "records", "rows",
			"projects", "users", "inventory", "orders", "approvals",
		},
		DocumentKeywords: []string{
			"document", "documents", "pdf", "file", "attachment",
			"according to", "contract", "agreement", "clause",
			"page", "paragraph",
		},
	}
}

// LoadRulesFile reads a rules file from disk
func LoadRulesFile(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}

	return &rules, nil
}

// Validate checks that the decision table is usable
func (r *Rules) Validate() error {
	if len(r.DataVerbs) == 0 {
		return fmt.Errorf("data_verbs cannot be empty")
	}
	if len(r.DataKeywords) == 0 {
		return fmt.Errorf("data_keywords cannot be empty")
	}
	for _, kw := range append(append([]string{}, r.DataKeywords...), r.DocumentKeywords...) {
		if kw == "" {
			return fmt.Errorf("keyword entries cannot be empty strings")
		}
	}
	return nil
}
