/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"pgedge-nlsql/internal/fragments"
)

// SlashCommand represents a parsed slash command
type SlashCommand struct {
	Command string
	Args    []string
}

// ParseSlashCommand parses a slash command from user input
func ParseSlashCommand(input string) *SlashCommand {
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(parts) == 0 {
		return nil
	}

	return &SlashCommand{
		Command: parts[0],
		Args:    parts[1:],
	}
}

// HandleSlashCommand processes slash commands, returns true if handled
func (c *Client) HandleSlashCommand(ctx context.Context, cmd *SlashCommand) bool {
	if cmd == nil {
		return false
	}

	switch cmd.Command {
	case "help":
		c.printSlashHelp()
		return true

	case "sql":
		c.showLastQuery()
		return true

	case "confirm":
		c.confirmLastQuery(ctx)
		return true

	case "stats":
		c.showKnowledgeStats(ctx)
		return true

	case "set":
		return c.handleSetCommand(cmd.Args)

	case "quit", "exit":
		// Handled by the chat loop, not here
		return false

	default:
		return false
	}
}

// printSlashHelp displays available slash commands
func (c *Client) printSlashHelp() {
	help := `
Available commands:
  /help              Show this help message
  /sql               Show the SQL behind the last answer
  /confirm           Save the last question/SQL pair as a verified example
  /stats             Show knowledge store contents by fragment type
  /set markdown on|off
                     Toggle markdown rendering of answers
  /set execute on|off
                     Toggle automatic execution of generated queries
  quit, exit         Leave the agent
`
	fmt.Print(help)
}

// showLastQuery prints the most recently generated query
func (c *Client) showLastQuery() {
	if c.last == nil {
		c.ui.PrintSystemMessage("No query generated yet")
		return
	}
	c.ui.PrintSQL(c.last.result.Query, c.last.result.Confidence)
	if len(c.last.result.Errors) > 0 {
		c.ui.PrintSystemMessage("validation errors: " + strings.Join(c.last.result.Errors, "; "))
	}
	if tables := c.last.result.RetrievedContext.Tables; len(tables) > 0 {
		c.ui.PrintSystemMessage("tables: " + strings.Join(tables, ", "))
	}
}

// confirmLastQuery saves the last question/SQL pair into the example
// store so future similar questions retrieve it as a template
func (c *Client) confirmLastQuery(ctx context.Context) {
	if c.last == nil {
		c.ui.PrintSystemMessage("No query to confirm yet")
		return
	}
	if c.examples == nil {
		c.ui.PrintError("example store is not configured")
		return
	}
	if !c.last.executed {
		c.ui.PrintSystemMessage("The last query never ran successfully; only confirm answers you have verified")
		return
	}

	id, err := c.examples.AddExample(ctx, c.last.question, c.last.result.Query, c.user)
	if err != nil {
		c.ui.PrintError(fmt.Sprintf("failed to save example: %v", err))
		return
	}
	c.ui.PrintSystemMessage(fmt.Sprintf("Saved as verified example %s", id))
}

// showKnowledgeStats prints fragment counts from the knowledge store
func (c *Client) showKnowledgeStats(ctx context.Context) {
	stats, err := c.kb.Stats(ctx)
	if err != nil {
		c.ui.PrintError(fmt.Sprintf("failed to read knowledge stats: %v", err))
		return
	}
	if len(stats) == 0 {
		c.ui.PrintSystemMessage("Knowledge store is empty; run nlsql-indexer first")
		return
	}

	var types []string
	for ft := range stats {
		types = append(types, string(ft))
	}
	sort.Strings(types)

	var b strings.Builder
	b.WriteString("Knowledge store contents:\n")
	total := 0
	for _, ft := range types {
		count := stats[fragments.FragmentType(ft)]
		total += count
		fmt.Fprintf(&b, "  %-18s %d\n", ft, count)
	}
	fmt.Fprintf(&b, "  %-18s %d", "total", total)
	c.ui.PrintSystemMessage(b.String())
}

// handleSetCommand adjusts runtime settings
func (c *Client) handleSetCommand(args []string) bool {
	if len(args) != 2 {
		c.ui.PrintError("Usage: /set <markdown|execute> <on|off>")
		return true
	}

	var enabled bool
	switch strings.ToLower(args[1]) {
	case "on", "true":
		enabled = true
	case "off", "false":
		enabled = false
	default:
		c.ui.PrintError(fmt.Sprintf("Invalid value %q, expected on or off", args[1]))
		return true
	}

	switch strings.ToLower(args[0]) {
	case "markdown":
		c.ui.RenderMarkdown = enabled
		c.ui.PrintSystemMessage(fmt.Sprintf("Markdown rendering %s", onOff(enabled)))
	case "execute":
		c.autoExecute = enabled
		c.ui.PrintSystemMessage(fmt.Sprintf("Query execution %s", onOff(enabled)))
	default:
		c.ui.PrintError(fmt.Sprintf("Unknown setting %q", args[0]))
	}
	return true
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
