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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pgedge-nlsql/internal/config"
	"pgedge-nlsql/internal/embedding"
	"pgedge-nlsql/internal/fragments"
	"pgedge-nlsql/internal/introspect"
	"pgedge-nlsql/internal/knowledge"
)

var (
	configFile        string
	databasePath      string
	businessRulesFile string
	keepExisting      bool
)

var rootCmd = &cobra.Command{
	Use:   "nlsql-indexer",
	Short: "pgEdge NL-SQL Indexer - Build the schema knowledge store",
	Long: `nlsql-indexer introspects a PostgreSQL database and builds the schema
knowledge store the agent retrieves from: table overviews, column details,
foreign-key relationships, enum values, and a schema overview, each embedded
for similarity search.

Curated business rules can be indexed alongside the schema from a YAML file.
Re-running the indexer replaces schema-derived fragments while confirmed
examples from the feedback loop are preserved.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "",
		"Path to configuration file")
	rootCmd.Flags().StringVarP(&databasePath, "database", "d", "",
		"Path to knowledge store SQLite database (overrides config file)")
	rootCmd.Flags().StringVar(&businessRulesFile, "business-rules", "",
		"Path to business rules YAML file (overrides config file)")
	rootCmd.Flags().BoolVar(&keepExisting, "keep-existing", false,
		"Keep existing schema fragments instead of replacing them")
}

func main() {
	// Let cobra handle errors and exit codes
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Suppress usage for runtime errors (flags have already been parsed by this point)
	cmd.SilenceUsage = true

	cfg, err := config.LoadConfig(configFile, configFile != "")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if databasePath != "" {
		cfg.Knowledge.DatabasePath = databasePath
	}
	if businessRulesFile != "" {
		cfg.Knowledge.BusinessRulesFile = businessRulesFile
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted, stopping...")
		cancel()
	}()

	fmt.Printf("Knowledge store: %s\n", cfg.Knowledge.DatabasePath)
	fmt.Printf("Embedding provider: %s (%s)\n", cfg.Embedding.Provider, cfg.Embedding.Model)

	provider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		return fmt.Errorf("failed to create embedding provider: %w", err)
	}

	kb, err := knowledge.Open(cfg.Knowledge.DatabasePath, provider)
	if err != nil {
		return fmt.Errorf("failed to open knowledge store: %w", err)
	}
	defer kb.Close()

	fmt.Printf("\n=== Introspecting %s@%s ===\n", cfg.Database.Database, cfg.Database.Host)
	svc, err := introspect.Connect(ctx, cfg.Database.ConnString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer svc.Close()

	snapshot, err := svc.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to introspect schema: %w", err)
	}
	fmt.Printf("Found %d tables, %d enum types\n", len(snapshot.Tables), len(snapshot.Enums))

	frags := introspect.Fragments(snapshot)

	if cfg.Knowledge.BusinessRulesFile != "" {
		ruleFrags, err := introspect.LoadBusinessRules(cfg.Knowledge.BusinessRulesFile)
		if err != nil {
			return fmt.Errorf("failed to load business rules: %w", err)
		}
		fmt.Printf("Loaded %d business rules from %s\n", len(ruleFrags), cfg.Knowledge.BusinessRulesFile)
		frags = append(frags, ruleFrags...)
	}

	if !keepExisting {
		removed, err := kb.ClearSchemaFragments(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear existing fragments: %w", err)
		}
		if removed > 0 {
			fmt.Printf("Replaced %d existing schema fragments\n", removed)
		}
	}

	fmt.Printf("\n=== Indexing %d fragments ===\n", len(frags))
	start := time.Now()
	ids, err := kb.Index(ctx, frags)
	if err != nil {
		return fmt.Errorf("failed to index fragments: %w", err)
	}
	fmt.Printf("Indexed %d fragments in %s\n", len(ids), time.Since(start).Round(time.Millisecond))

	stats, err := kb.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read store stats: %w", err)
	}

	fmt.Println("\n=== Knowledge Store Contents ===")
	for _, ft := range []fragments.FragmentType{
		fragments.TypeSchemaOverview,
		fragments.TypeTableOverview,
		fragments.TypeColumns,
		fragments.TypeRelationship,
		fragments.TypeEnum,
		fragments.TypeBusinessRule,
		fragments.TypeFewShotExample,
	} {
		if count, ok := stats[ft]; ok {
			fmt.Printf("  %-18s %d\n", ft, count)
		}
	}

	return nil
}
