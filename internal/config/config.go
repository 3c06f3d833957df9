/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

// Package config loads the agent configuration with layered priority:
// command line flags override environment variables, which override the
// configuration file, which overrides hard-coded defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pgedge-nlsql/internal/embedding"
	"pgedge-nlsql/internal/llm"
	"pgedge-nlsql/internal/nlsql"
)

// Config represents the complete agent configuration
type Config struct {
	// Database is the Postgres the agent introspects and queries
	Database DatabaseConfig `yaml:"database"`

	// Embedding configures the similarity-embedding provider. The same
	// provider must serve indexing and querying.
	Embedding embedding.Config `yaml:"embedding"`

	// LLM configures the inference provider for SQL generation
	LLM llm.Config `yaml:"llm"`

	// Knowledge configures the schema knowledge store
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// Router configures the query classifier
	Router RouterConfig `yaml:"router"`

	// Generator holds the NL-to-SQL pipeline tuning parameters
	Generator nlsql.Config `yaml:"generator"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`     // Database host (default: localhost)
	Port     int    `yaml:"port"`     // Database port (default: 5432)
	Database string `yaml:"database"` // Database name (default: postgres)
	User     string `yaml:"user"`     // Database user (required for introspection/execution)
	Password string `yaml:"password"` // Optional, env var preferred
	SSLMode  string `yaml:"sslmode"`  // disable, require, verify-ca, verify-full (default: prefer)

	// MaxRows caps result sets returned by the execution service
	MaxRows int `yaml:"max_rows"`
}

// ConnString builds a pgx connection string
func (d DatabaseConfig) ConnString() string {
	parts := []string{
		fmt.Sprintf("host=%s", d.Host),
		fmt.Sprintf("port=%d", d.Port),
		fmt.Sprintf("dbname=%s", d.Database),
	}
	if d.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", d.User))
	}
	if d.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", d.Password))
	}
	if d.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", d.SSLMode))
	}
	return strings.Join(parts, " ")
}

// KnowledgeConfig holds knowledge store settings
type KnowledgeConfig struct {
	// DatabasePath is the SQLite file backing the fragment index
	DatabasePath string `yaml:"database_path"`

	// DataDir holds the durable example log
	DataDir string `yaml:"data_dir"`

	// BusinessRulesFile is an optional YAML file of business-rule
	// fragments indexed alongside the introspected schema
	BusinessRulesFile string `yaml:"business_rules_file"`
}

// RouterConfig holds classifier settings
type RouterConfig struct {
	// RulesFile is the classifier's YAML decision table; empty means
	// built-in defaults
	RulesFile string `yaml:"rules_file"`

	// WatchRules enables hot reload of the rules file
	WatchRules bool `yaml:"watch_rules"`
}

// LoadConfig loads configuration with proper priority:
// 1. Environment variables (flags are applied by the caller)
// 2. Configuration file
// 3. Hard-coded defaults (lowest priority)
//
// A missing config file is an error only when explicitly requested.
func LoadConfig(configPath string, explicit bool) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		fileCfg, err := loadConfigFile(configPath)
		if err != nil {
			if explicit {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else {
			mergeConfig(cfg, fileCfg)
		}
	}

	applyEnvironmentVariables(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns configuration with hard-coded defaults
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			SSLMode:  "prefer",
			MaxRows:  500,
		},
		Embedding: embedding.Config{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			OllamaURL: "http://localhost:11434",
		},
		LLM: llm.Config{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 2048,
		},
		Knowledge: KnowledgeConfig{
			DatabasePath: "./nlsql-knowledge.db",
			DataDir:      "./nlsql-data",
		},
		Generator: nlsql.DefaultConfig(),
	}
}

// loadConfigFile loads configuration from a YAML file
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

// mergeConfig merges source config into dest, only overriding non-zero
// values
func mergeConfig(dest, src *Config) {
	if src.Database.Host != "" {
		dest.Database.Host = src.Database.Host
	}
	if src.Database.Port != 0 {
		dest.Database.Port = src.Database.Port
	}
	if src.Database.Database != "" {
		dest.Database.Database = src.Database.Database
	}
	if src.Database.User != "" {
		dest.Database.User = src.Database.User
	}
	if src.Database.Password != "" {
		dest.Database.Password = src.Database.Password
	}
	if src.Database.SSLMode != "" {
		dest.Database.SSLMode = src.Database.SSLMode
	}
	if src.Database.MaxRows != 0 {
		dest.Database.MaxRows = src.Database.MaxRows
	}

	if src.Embedding.Provider != "" {
		dest.Embedding.Provider = src.Embedding.Provider
	}
	if src.Embedding.Model != "" {
		dest.Embedding.Model = src.Embedding.Model
	}
	if src.Embedding.VoyageAPIKey != "" {
		dest.Embedding.VoyageAPIKey = src.Embedding.VoyageAPIKey
	}
	if src.Embedding.OpenAIAPIKey != "" {
		dest.Embedding.OpenAIAPIKey = src.Embedding.OpenAIAPIKey
	}
	if src.Embedding.OllamaURL != "" {
		dest.Embedding.OllamaURL = src.Embedding.OllamaURL
	}

	if src.LLM.Provider != "" {
		dest.LLM.Provider = src.LLM.Provider
	}
	if src.LLM.Model != "" {
		dest.LLM.Model = src.LLM.Model
	}
	if src.LLM.APIKey != "" {
		dest.LLM.APIKey = src.LLM.APIKey
	}
	if src.LLM.BaseURL != "" {
		dest.LLM.BaseURL = src.LLM.BaseURL
	}
	if src.LLM.MaxTokens != 0 {
		dest.LLM.MaxTokens = src.LLM.MaxTokens
	}
	if src.LLM.Temperature != 0 {
		dest.LLM.Temperature = src.LLM.Temperature
	}

	if src.Knowledge.DatabasePath != "" {
		dest.Knowledge.DatabasePath = src.Knowledge.DatabasePath
	}
	if src.Knowledge.DataDir != "" {
		dest.Knowledge.DataDir = src.Knowledge.DataDir
	}
	if src.Knowledge.BusinessRulesFile != "" {
		dest.Knowledge.BusinessRulesFile = src.Knowledge.BusinessRulesFile
	}

	if src.Router.RulesFile != "" {
		dest.Router.RulesFile = src.Router.RulesFile
		dest.Router.WatchRules = src.Router.WatchRules
	}

	if src.Generator.TableScoreThreshold != 0 {
		dest.Generator.TableScoreThreshold = src.Generator.TableScoreThreshold
	}
	if src.Generator.TableVerifyThreshold != 0 {
		dest.Generator.TableVerifyThreshold = src.Generator.TableVerifyThreshold
	}
	if src.Generator.MaxTables != 0 {
		dest.Generator.MaxTables = src.Generator.MaxTables
	}
	if src.Generator.ContextLimit != 0 {
		dest.Generator.ContextLimit = src.Generator.ContextLimit
	}
	if src.Generator.ExampleLimit != 0 {
		dest.Generator.ExampleLimit = src.Generator.ExampleLimit
	}
	if src.Generator.ExampleScoreThreshold != 0 {
		dest.Generator.ExampleScoreThreshold = src.Generator.ExampleScoreThreshold
	}
	if src.Generator.Temperature != 0 {
		dest.Generator.Temperature = src.Generator.Temperature
	}
	if src.Generator.MaxTokens != 0 {
		dest.Generator.MaxTokens = src.Generator.MaxTokens
	}
}

// setStringFromEnv sets a string config value from an environment
// variable if it exists
func setStringFromEnv(dest *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dest = val
	}
}

// setStringFromEnvWithFallback checks multiple environment variable
// names in priority order
func setStringFromEnvWithFallback(dest *string, keys ...string) {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			*dest = val
			return
		}
	}
}

// setIntFromEnv sets an integer config value from an environment
// variable if it exists
func setIntFromEnv(dest *int, key string) {
	if val := os.Getenv(key); val != "" {
		var intVal int
		if _, err := fmt.Sscanf(val, "%d", &intVal); err == nil {
			*dest = intVal
		}
	}
}

// applyEnvironmentVariables overrides config with environment variables
// if they exist. All variables use the NLSQL_ prefix to avoid
// collisions; standard PostgreSQL variables are honored as fallbacks.
func applyEnvironmentVariables(cfg *Config) {
	setStringFromEnv(&cfg.Database.Host, "NLSQL_DB_HOST")
	setIntFromEnv(&cfg.Database.Port, "NLSQL_DB_PORT")
	setStringFromEnv(&cfg.Database.Database, "NLSQL_DB_NAME")
	setStringFromEnv(&cfg.Database.User, "NLSQL_DB_USER")
	setStringFromEnv(&cfg.Database.Password, "NLSQL_DB_PASSWORD")
	setStringFromEnv(&cfg.Database.SSLMode, "NLSQL_DB_SSLMODE")

	if cfg.Database.Host == "localhost" {
		setStringFromEnv(&cfg.Database.Host, "PGHOST")
	}
	if cfg.Database.Port == 5432 {
		setIntFromEnv(&cfg.Database.Port, "PGPORT")
	}
	if cfg.Database.Database == "postgres" {
		setStringFromEnv(&cfg.Database.Database, "PGDATABASE")
	}
	if cfg.Database.User == "" {
		setStringFromEnv(&cfg.Database.User, "PGUSER")
	}
	if cfg.Database.Password == "" {
		setStringFromEnv(&cfg.Database.Password, "PGPASSWORD")
	}

	setStringFromEnv(&cfg.Embedding.Provider, "NLSQL_EMBEDDING_PROVIDER")
	setStringFromEnv(&cfg.Embedding.Model, "NLSQL_EMBEDDING_MODEL")
	setStringFromEnv(&cfg.Embedding.OllamaURL, "NLSQL_EMBEDDING_OLLAMA_URL")
	setStringFromEnvWithFallback(&cfg.Embedding.VoyageAPIKey, "NLSQL_VOYAGE_API_KEY", "VOYAGE_API_KEY")
	setStringFromEnvWithFallback(&cfg.Embedding.OpenAIAPIKey, "NLSQL_OPENAI_API_KEY", "OPENAI_API_KEY")

	setStringFromEnv(&cfg.LLM.Provider, "NLSQL_LLM_PROVIDER")
	setStringFromEnv(&cfg.LLM.Model, "NLSQL_LLM_MODEL")
	setStringFromEnv(&cfg.LLM.BaseURL, "NLSQL_LLM_BASE_URL")
	setStringFromEnvWithFallback(&cfg.LLM.APIKey, "NLSQL_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")

	setStringFromEnv(&cfg.Knowledge.DatabasePath, "NLSQL_KNOWLEDGE_PATH")
	setStringFromEnv(&cfg.Knowledge.DataDir, "NLSQL_DATA_DIR")
	setStringFromEnv(&cfg.Knowledge.BusinessRulesFile, "NLSQL_BUSINESS_RULES_FILE")
	setStringFromEnv(&cfg.Router.RulesFile, "NLSQL_ROUTER_RULES_FILE")
}

// validateConfig checks the final configuration for consistency
func validateConfig(cfg *Config) error {
	switch cfg.Embedding.Provider {
	case "voyage", "openai", "ollama", "local":
	default:
		return fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}

	switch cfg.LLM.Provider {
	case "anthropic", "ollama":
	default:
		return fmt.Errorf("unknown llm provider: %s", cfg.LLM.Provider)
	}

	if cfg.Knowledge.DatabasePath == "" {
		return fmt.Errorf("knowledge.database_path cannot be empty")
	}
	if cfg.Knowledge.DataDir == "" {
		return fmt.Errorf("knowledge.data_dir cannot be empty")
	}
	if cfg.Database.MaxRows < 0 {
		return fmt.Errorf("database.max_rows cannot be negative")
	}

	return nil
}
