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
	"fmt"
	"regexp"
	"strings"
)

// queryOpeners are the only keywords a generated statement may begin
// with
var queryOpeners = []string{"SELECT", "INSERT", "UPDATE", "DELETE", "WITH"}

// clauseKeywords may appear at most once in a generated statement.
// Subqueries legitimately repeat some of these, but the models this
// pipeline targets produce flat single-statement queries; a repeat is
// far more often a sign of garbled output.
var clauseKeywords = []string{"FROM", "WHERE", "GROUP BY", "ORDER BY", "HAVING", "LIMIT"}

// clausePatterns holds one compiled whole-word matcher per clause
// keyword
var clausePatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(clauseKeywords))
	for _, kw := range clauseKeywords {
		patterns[kw] = regexp.MustCompile(`\b` + strings.ReplaceAll(kw, " ", `\s+`) + `\b`)
	}
	return patterns
}()

// CleanSQL strips markdown fences, SQL comments, explanatory text and
// the trailing statement terminator from raw model output, returning
// the bare first statement.
func CleanSQL(input string) string {
	input = strings.TrimSpace(input)

	if after, found := strings.CutPrefix(input, "```sql"); found {
		input = after
	} else if after, found := strings.CutPrefix(input, "```"); found {
		input = after
	}
	input = strings.TrimSuffix(input, "```")
	input = strings.TrimSpace(input)

	// Remove block comments before splitting into lines
	for {
		start := strings.Index(input, "/*")
		if start == -1 {
			break
		}
		end := strings.Index(input[start:], "*/")
		if end == -1 {
			break
		}
		input = input[:start] + " " + input[start+end+2:]
	}

	var sqlLines []string
	hitTerminator := false

	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if idx := strings.Index(line, "--"); idx > 0 {
			line = strings.TrimSpace(line[:idx])
		}

		// Keep only the first statement
		if strings.Contains(line, ";") {
			line = strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
			hitTerminator = true
		}

		if line != "" {
			sqlLines = append(sqlLines, line)
		}
		if hitTerminator {
			break
		}
	}

	result := strings.Join(sqlLines, " ")
	result = strings.TrimSuffix(result, "```")

	// Normalize whitespace
	return strings.Join(strings.Fields(result), " ")
}

// Validate runs the syntactic checks on a cleaned query and returns
// one error string per violation, in check order. An empty slice means
// the query is execution-ready.
func Validate(query string) []string {
	var errs []string

	if strings.TrimSpace(query) == "" {
		return []string{"generated query is empty"}
	}

	upper := strings.ToUpper(query)

	opens := false
	for _, kw := range queryOpeners {
		if !strings.HasPrefix(upper, kw) {
			continue
		}
		// The keyword must end at a word boundary: "SELECT(1)" opens a
		// query, "SELECTED" does not
		rest := upper[len(kw):]
		if rest == "" || !isWordChar(rest[0]) {
			opens = true
			break
		}
	}
	if !opens {
		errs = append(errs, fmt.Sprintf("query must begin with one of %s",
			strings.Join(queryOpeners, ", ")))
	}

	if open, closed := countParens(query); open != closed {
		errs = append(errs, fmt.Sprintf("unbalanced parentheses (%d open, %d close)", open, closed))
	}

	for _, clause := range clauseKeywords {
		if countKeyword(upper, clause) > 1 {
			errs = append(errs, fmt.Sprintf("duplicated clause keyword: %s", clause))
		}
	}

	return errs
}

// countParens counts parentheses outside of string literals
func countParens(query string) (open, closed int) {
	inString := false
	for _, ch := range query {
		switch {
		case ch == '\'':
			inString = !inString
		case inString:
		case ch == '(':
			open++
		case ch == ')':
			closed++
		}
	}
	return open, closed
}

// countKeyword counts whole-word occurrences of kw in the uppercased
// query
func countKeyword(upper, kw string) int {
	return len(clausePatterns[kw].FindAllString(upper, -1))
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}
