/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package agent is the interactive terminal client. It routes each
// question, generates SQL over the knowledge store, executes read-only
// results against Postgres, and feeds confirmed answers back into the
// example store.
package agent

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/term"

	"pgedge-nlsql/internal/config"
	"pgedge-nlsql/internal/embedding"
	"pgedge-nlsql/internal/examples"
	"pgedge-nlsql/internal/executor"
	"pgedge-nlsql/internal/knowledge"
	"pgedge-nlsql/internal/llm"
	"pgedge-nlsql/internal/logging"
	"pgedge-nlsql/internal/nlsql"
	"pgedge-nlsql/internal/router"
)

// summaryTemperature is used for conversational replies and result
// summaries. SQL generation itself stays at the configured (near-zero)
// temperature; prose does not need to be deterministic.
const summaryTemperature = 0.7

// summaryRowLimit caps how many result rows are handed to the model
// when summarizing
const summaryRowLimit = 20

// lastQuery remembers the most recent generation for /sql and /confirm
type lastQuery struct {
	question string
	result   nlsql.GenerationResult
	executed bool
}

// Client is the interactive agent session
type Client struct {
	config      *config.Config
	ui          *UI
	router      *router.Router
	generator   *nlsql.Generator
	kb          *knowledge.Store
	examples    *examples.Store
	inference   llm.Client
	pool        *pgxpool.Pool
	executor    *executor.Executor
	watcher     *router.RulesWatcher
	user        string
	autoExecute bool
	last        *lastQuery
}

// NewClient wires the full pipeline from configuration. The database
// connection is established later in Run so generation still works
// when Postgres is unreachable.
func NewClient(cfg *config.Config, noColor bool) (*Client, error) {
	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	kb, err := knowledge.Open(cfg.Knowledge.DatabasePath, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge store: %w", err)
	}

	exampleStore, err := examples.NewStore(cfg.Knowledge.DataDir, kb)
	if err != nil {
		kb.Close()
		return nil, fmt.Errorf("failed to open example store: %w", err)
	}

	inference, err := llm.NewClient(cfg.LLM)
	if err != nil {
		kb.Close()
		exampleStore.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var rt *router.Router
	if cfg.Router.RulesFile != "" {
		rt, err = router.NewFromFile(cfg.Router.RulesFile)
	} else {
		rt, err = router.New(router.DefaultRules())
	}
	if err != nil {
		kb.Close()
		exampleStore.Close()
		return nil, fmt.Errorf("failed to build router: %w", err)
	}

	user := os.Getenv("USER")
	if user == "" {
		user = "agent"
	}

	return &Client{
		config:      cfg,
		ui:          NewUI(noColor, true),
		router:      rt,
		generator:   nlsql.NewGenerator(kb, exampleStore, inference, cfg.Generator),
		kb:          kb,
		examples:    exampleStore,
		inference:   inference,
		user:        user,
		autoExecute: true,
	}, nil
}

// Close releases every resource the client holds
func (c *Client) Close() {
	if c.watcher != nil {
		c.watcher.Stop()
	}
	if c.pool != nil {
		c.pool.Close()
	}
	if c.examples != nil {
		c.examples.Close()
	}
	if c.kb != nil {
		c.kb.Close()
	}
}

// Run starts the interactive session and blocks until the user exits
// or the context is canceled
func (c *Client) Run(ctx context.Context) error {
	defer c.Close()

	c.ui.PrintWelcome(c.config.Database.Database)

	if err := c.connectDatabase(ctx); err != nil {
		c.ui.PrintSystemMessage(fmt.Sprintf(
			"Postgres is unreachable (%v); queries will be generated but not executed", err))
	}

	if c.config.Router.RulesFile != "" && c.config.Router.WatchRules {
		watcher, err := router.NewRulesWatcher(c.config.Router.RulesFile, c.router)
		if err != nil {
			c.ui.PrintSystemMessage(fmt.Sprintf("rules hot reload unavailable: %v", err))
		} else {
			watcher.Start()
			c.watcher = watcher
		}
	}

	return c.chatLoop(ctx)
}

// connectDatabase opens the executor's connection pool, prompting for
// a password when one is needed and stdin is a terminal
func (c *Client) connectDatabase(ctx context.Context) error {
	db := c.config.Database

	if db.User != "" && db.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := c.ui.PromptForPassword(ctx, db.User)
		if err != nil {
			return err
		}
		db.Password = password
	}

	poolCfg, err := pgxpool.ParseConfig(db.ConnString())
	if err != nil {
		return err
	}
	poolCfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return err
	}

	c.pool = pool
	c.executor = executor.New(pool, db.MaxRows)
	logging.Info("connected to database", "host", db.Host, "database", db.Database)
	return nil
}

// chatLoop runs the interactive readline loop
func (c *Client) chatLoop(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            c.ui.GetPrompt(),
		HistoryLimit:      1000,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	// Closing readline unblocks Readline() when the context ends
	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF || ctx.Err() != nil {
				fmt.Println()
				c.ui.PrintSystemMessage("Goodbye!")
				return nil
			}
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if input == "quit" || input == "exit" {
			c.ui.PrintSystemMessage("Goodbye!")
			return nil
		}

		if cmd := ParseSlashCommand(input); cmd != nil {
			if c.HandleSlashCommand(ctx, cmd) {
				continue
			}
			c.ui.PrintError(fmt.Sprintf("Unknown command: /%s (type /help for available commands)", cmd.Command))
			continue
		}

		if err := c.processQuery(ctx, input); err != nil {
			c.ui.PrintError(err.Error())
		}

		c.ui.PrintSeparator()
	}
}

// processQuery routes one question and dispatches it
func (c *Client) processQuery(ctx context.Context, input string) error {
	queryType := c.router.Classify(input)
	logging.Debug("question routed", "type", string(queryType))

	switch queryType {
	case router.QueryDocument:
		c.ui.PrintSystemMessage(
			"That looks like a question about a document; this agent answers questions about your database")
		return nil
	case router.QueryChat:
		return c.handleChat(ctx, input)
	default:
		return c.handleDatabaseQuery(ctx, input)
	}
}

// handleChat answers conversational input without touching the database
func (c *Client) handleChat(ctx context.Context, input string) error {
	done := make(chan struct{})
	go c.ui.ShowThinking(ctx, done)

	response, err := c.inference.Complete(ctx, llm.Request{
		System: "You are a helpful assistant for a natural-language database agent. " +
			"Answer briefly. If the user seems to want data, suggest they ask a question about their tables.",
		Prompt:      input,
		Temperature: summaryTemperature,
	})
	close(done)
	if err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}

	c.ui.PrintAnswer(response)
	return nil
}

// handleDatabaseQuery runs the full pipeline: generate, execute,
// summarize
func (c *Client) handleDatabaseQuery(ctx context.Context, input string) error {
	done := make(chan struct{})
	go c.ui.ShowThinking(ctx, done)
	result := c.generator.Generate(ctx, input, true)
	close(done)

	c.last = &lastQuery{question: input, result: result}

	if result.State == nlsql.StateFailed {
		return fmt.Errorf("query generation failed: %s", strings.TrimPrefix(result.Query, "-- ERROR: "))
	}

	c.ui.PrintSQL(result.Query, result.Confidence)

	if !result.ExecutionReady {
		c.ui.PrintSystemMessage("Query failed validation and will not be executed: " +
			strings.Join(result.Errors, "; "))
		return nil
	}
	if !c.autoExecute {
		c.ui.PrintSystemMessage("Execution is disabled (/set execute on to enable)")
		return nil
	}
	if c.executor == nil {
		c.ui.PrintSystemMessage("No database connection; query not executed")
		return nil
	}

	execResult, err := c.executor.Execute(ctx, result.Query)
	if err != nil {
		// Database errors are surfaced verbatim; the message usually
		// names the missing column or table
		return err
	}
	c.last.executed = true

	c.ui.PrintAnswer(markdownTable(execResult))
	if execResult.Truncated {
		c.ui.PrintSystemMessage(fmt.Sprintf("Results truncated to %d rows", execResult.RowCount))
	}

	if summary, err := c.summarize(ctx, input, result.Query, execResult); err == nil && summary != "" {
		c.ui.PrintAnswer(summary)
	}

	return nil
}

// summarize asks the model for a short prose answer grounded in the
// executed rows
func (c *Client) summarize(ctx context.Context, question, query string, result *executor.Result) (string, error) {
	if result.RowCount == 0 {
		return "The query returned no rows.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nSQL:\n%s\n\nResults (%d rows", question, query, result.RowCount)
	if result.Truncated {
		b.WriteString(", truncated")
	}
	b.WriteString("):\n")
	b.WriteString(strings.Join(result.Columns, "\t"))
	b.WriteString("\n")
	for i, row := range result.Rows {
		if i >= summaryRowLimit {
			fmt.Fprintf(&b, "... %d more rows\n", result.RowCount-summaryRowLimit)
			break
		}
		b.WriteString(strings.Join(row, "\t"))
		b.WriteString("\n")
	}
	b.WriteString("\nAnswer the question in one or two sentences based only on these results.")

	return c.inference.Complete(ctx, llm.Request{
		System:      "You summarize SQL query results for non-technical users. Be concise and factual.",
		Prompt:      b.String(),
		Temperature: summaryTemperature,
	})
}

// markdownTable renders an execution result as a markdown table for
// the terminal renderer
func markdownTable(result *executor.Result) string {
	if len(result.Columns) == 0 {
		return "(no columns)"
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(result.Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(result.Columns)))
	b.WriteString("\n")
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = strings.ReplaceAll(v, "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	fmt.Fprintf(&b, "\n%d rows in %s\n", result.RowCount, result.Duration.Round(time.Millisecond))
	return b.String()
}
