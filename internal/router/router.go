/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package router classifies incoming user text into one of three
// handling flows before any model is invoked: database questions go to
// the SQL generator, document questions to the document flow, and
// everything else to plain conversation. Classification is heuristic
// and ordered; the first matching rule wins.
package router

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"pgedge-nlsql/internal/logging"
)

// QueryType is the routing decision for one piece of user text
type QueryType string

const (
	QueryDatabase QueryType = "database"
	QueryDocument QueryType = "document"
	QueryChat     QueryType = "chat"
)

// identifierToken matches snake_case tokens that look like table or
// column names ("ran_projects", "order_items")
var identifierToken = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)+$`)

// Router evaluates the classification rules. Rule evaluation is
// lock-free on the hot path except for an RWMutex read; SetRules swaps
// the whole decision table atomically so a reload mid-classification
// never observes a half-updated table.
type Router struct {
	mu            sync.RWMutex
	rules         *Rules
	directPattern *regexp.Regexp
}

// New creates a router from a decision table. Pass DefaultRules() when
// no rules file is configured.
func New(rules *Rules) (*Router, error) {
	r := &Router{}
	if err := r.SetRules(rules); err != nil {
		return nil, err
	}
	return r, nil
}

// NewFromFile creates a router from a rules file on disk
func NewFromFile(path string) (*Router, error) {
	rules, err := LoadRulesFile(path)
	if err != nil {
		return nil, err
	}
	return New(rules)
}

// SetRules validates and installs a new decision table. On failure the
// previous table stays active.
func (r *Router) SetRules(rules *Rules) error {
	if rules == nil {
		return fmt.Errorf("rules cannot be nil")
	}
	if err := rules.Validate(); err != nil {
		return err
	}

	pattern, err := compileDirectPattern(rules.DataVerbs)
	if err != nil {
		return fmt.Errorf("failed to compile direct-request pattern: %w", err)
	}

	r.mu.Lock()
	r.rules = rules
	r.directPattern = pattern
	r.mu.Unlock()

	return nil
}

// compileDirectPattern builds the regex for rule 1: an imperative data
// verb, optional filler words, then a single identifier-like token.
// "show me all projects" matches; "show me how to cook" does not.
func compileDirectPattern(verbs []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(verbs))
	for i, v := range verbs {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(v))
	}

	expr := `^\s*(?:` + strings.Join(quoted, "|") + `)\s+` +
		`(?:(?:me|all|the|every)\s+)*` +
		`([a-z][a-z0-9_]*)\s*[?.!]?\s*$`
	return regexp.Compile(expr)
}

// Classify routes one piece of user text. Rules are evaluated in a
// fixed order and the first match wins:
//
//  1. Direct table request: an imperative data verb followed by a bare
//     identifier, or a very short text naming schema vocabulary.
//  2. Keyword density: two or more distinct data-retrieval signals.
//  3. Document vocabulary routes to the document flow.
//  4. Everything else is conversation.
func (r *Router) Classify(text string) QueryType {
	r.mu.RLock()
	rules := r.rules
	directPattern := r.directPattern
	r.mu.RUnlock()

	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return QueryChat
	}
	words := strings.Fields(lower)

	// Rule 1: direct table request
	if directPattern.MatchString(lower) {
		logging.Debug("classified as direct table request", "text", text)
		return QueryDatabase
	}
	if len(words) <= 4 && containsAny(lower, rules.DomainKeywords) {
		logging.Debug("classified as short schema reference", "text", text)
		return QueryDatabase
	}

	// Rule 2: keyword density
	if hits := dataSignals(lower, words, rules.DataKeywords); hits >= 2 {
		logging.Debug("classified by data keyword density", "text", text, "hits", hits)
		return QueryDatabase
	}

	// Rule 3: document vocabulary
	if containsAny(lower, rules.DocumentKeywords) {
		return QueryDocument
	}

	// Rule 4: default
	return QueryChat
}

// dataSignals counts distinct data-retrieval signals in the text:
// each matching keyword or phrase counts once, and each snake_case
// identifier token counts once. "how many ran_projects" scores two.
func dataSignals(lower string, words []string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if containsKeyword(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	for _, w := range words {
		w = strings.Trim(w, "?.!,;:")
		if identifierToken.MatchString(w) {
			hits++
		}
	}
	return hits
}

// containsAny reports whether the text contains any of the keywords
// on a word boundary
func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if containsKeyword(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// containsKeyword matches kw inside lower on word boundaries, so the
// keyword "top" does not fire on "laptops"
func containsKeyword(lower, kw string) bool {
	idx := 0
	for {
		i := strings.Index(lower[idx:], kw)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(kw)

		beforeOK := start == 0 || !isWordByte(lower[start-1])
		afterOK := end == len(lower) || !isWordByte(lower[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9')
}
