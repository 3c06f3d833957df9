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
	"os"

	"gopkg.in/yaml.v3"

	"pgedge-nlsql/internal/fragments"
)

// BusinessRule is one curated rule from the rules file. Rules are
// domain knowledge the schema itself cannot express, for instance
// "archived projects are excluded unless asked for explicitly".
type BusinessRule struct {
	Name  string `yaml:"name"`
	Table string `yaml:"table,omitempty"`
	Rule  string `yaml:"rule"`
}

type businessRulesFile struct {
	Rules []BusinessRule `yaml:"rules"`
}

// LoadBusinessRules reads curated business rules from a YAML file and
// renders them as business_rule fragments
func LoadBusinessRules(path string) ([]fragments.SchemaFragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read business rules file: %w", err)
	}

	var file businessRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse business rules file %s: %w", path, err)
	}

	var frags []fragments.SchemaFragment
	for i, rule := range file.Rules {
		if rule.Rule == "" {
			return nil, fmt.Errorf("business rule %d has no rule text", i)
		}
		frags = append(frags, fragments.SchemaFragment{
			Type: fragments.TypeBusinessRule,
			Text: "business rule: " + rule.Rule,
			Metadata: fragments.BusinessRuleMetadata{
				TableName: rule.Table,
				TermName:  rule.Name,
			},
		})
	}

	return frags, nil
}
