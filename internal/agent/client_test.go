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
	"strings"
	"testing"
	"time"

	"pgedge-nlsql/internal/executor"
)

func TestParseSlashCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCmd  string
		wantArgs []string
		wantNil  bool
	}{
		{"not a command", "show me all projects", "", nil, true},
		{"bare slash", "/", "", nil, true},
		{"simple", "/help", "help", nil, false},
		{"with args", "/set markdown off", "set", []string{"markdown", "off"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := ParseSlashCommand(tt.input)
			if tt.wantNil {
				if cmd != nil {
					t.Fatalf("expected nil, got %+v", cmd)
				}
				return
			}
			if cmd == nil {
				t.Fatal("expected command, got nil")
			}
			if cmd.Command != tt.wantCmd {
				t.Errorf("command = %q, want %q", cmd.Command, tt.wantCmd)
			}
			if len(cmd.Args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", cmd.Args, tt.wantArgs)
			}
			for i := range cmd.Args {
				if cmd.Args[i] != tt.wantArgs[i] {
					t.Errorf("arg %d = %q, want %q", i, cmd.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

func TestMarkdownTable(t *testing.T) {
	result := &executor.Result{
		Columns:  []string{"name", "status"},
		Rows:     [][]string{{"alpha", "active"}, {"pipe|name", "archived"}},
		RowCount: 2,
		Duration: 3 * time.Millisecond,
	}

	table := markdownTable(result)

	if !strings.Contains(table, "| name | status |") {
		t.Errorf("missing header row: %q", table)
	}
	if !strings.Contains(table, "| --- | --- |") {
		t.Errorf("missing separator row: %q", table)
	}
	if !strings.Contains(table, `pipe\|name`) {
		t.Errorf("pipe character not escaped: %q", table)
	}
	if !strings.Contains(table, "2 rows in 3ms") {
		t.Errorf("missing row count footer: %q", table)
	}
}

func TestMarkdownTableNoColumns(t *testing.T) {
	if got := markdownTable(&executor.Result{}); got != "(no columns)" {
		t.Errorf("markdownTable(empty) = %q", got)
	}
}
