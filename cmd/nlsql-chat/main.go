/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pgedge-nlsql/internal/agent"
	"pgedge-nlsql/internal/config"
)

const (
	version = "1.0.0-alpha1"
)

func main() {
	// Command line flags
	configFile := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbHost := flag.String("db-host", "", "Database host")
	dbName := flag.String("db-name", "", "Database name")
	dbUser := flag.String("db-user", "", "Database user")
	llmProvider := flag.String("llm-provider", "", "LLM provider: anthropic or ollama (default: anthropic)")
	llmModel := flag.String("llm-model", "", "LLM model to use")
	apiKey := flag.String("api-key", "", "API key for LLM provider")
	knowledgeDB := flag.String("knowledge-db", "", "Path to knowledge store SQLite database")
	noColor := flag.Bool("no-color", false, "Disable colored output")

	flag.Parse()

	// Show version
	if *showVersion {
		fmt.Printf("pgEdge NL-SQL Agent v%s\n", version)
		return
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configFile, *configFile != "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Override config with command line flags
	if *dbHost != "" {
		cfg.Database.Host = *dbHost
	}
	if *dbName != "" {
		cfg.Database.Database = *dbName
	}
	if *dbUser != "" {
		cfg.Database.User = *dbUser
	}
	if *llmProvider != "" {
		cfg.LLM.Provider = *llmProvider
	}
	if *llmModel != "" {
		cfg.LLM.Model = *llmModel
	}
	if *apiKey != "" {
		cfg.LLM.APIKey = *apiKey
	}
	if *knowledgeDB != "" {
		cfg.Knowledge.DatabasePath = *knowledgeDB
	}

	// Set up context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	client, err := agent.NewClient(cfg, *noColor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing agent: %v\n", err)
		os.Exit(1)
	}

	if err := client.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
