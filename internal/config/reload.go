/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"sync"

	"pgedge-nlsql/internal/logging"
)

// ReloadableConfig wraps a Config with thread-safe access and reload
// capability. A failed reload keeps the old config active.
type ReloadableConfig struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	onReload []func(*Config)
}

// NewReloadableConfig creates a new reloadable configuration
func NewReloadableConfig(config *Config, path string) *ReloadableConfig {
	return &ReloadableConfig{
		config: config,
		path:   path,
	}
}

// Get returns the current configuration (read-only access)
func (rc *ReloadableConfig) Get() *Config {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.config
}

// Reload reloads the configuration from the file. Returns an error if
// the reload fails, but keeps the old config.
func (rc *ReloadableConfig) Reload() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	if rc.path == "" {
		return fmt.Errorf("no configuration file path set")
	}

	newConfig, err := LoadConfig(rc.path, true)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rc.logRestartRequiredSettings(newConfig)

	rc.config = newConfig
	for _, callback := range rc.onReload {
		callback(newConfig)
	}

	logging.Info("configuration reloaded", "path", rc.path)
	return nil
}

// logRestartRequiredSettings notes changed settings that take effect
// only after a restart
func (rc *ReloadableConfig) logRestartRequiredSettings(newConfig *Config) {
	old := rc.config

	// The knowledge index is built with one embedding model; switching
	// it invalidates every stored vector
	if old.Embedding.Provider != newConfig.Embedding.Provider ||
		old.Embedding.Model != newConfig.Embedding.Model {
		logging.Warn("embedding provider changed; existing index requires a full re-index",
			"provider", newConfig.Embedding.Provider, "model", newConfig.Embedding.Model)
	}

	if old.Knowledge.DatabasePath != newConfig.Knowledge.DatabasePath {
		logging.Warn("knowledge.database_path changed - requires restart")
	}
	if old.Knowledge.DataDir != newConfig.Knowledge.DataDir {
		logging.Warn("knowledge.data_dir changed - requires restart")
	}

	if old.LLM.Provider != newConfig.LLM.Provider {
		logging.Info("llm provider changed", "provider", newConfig.LLM.Provider)
	}
	if old.LLM.Model != newConfig.LLM.Model {
		logging.Info("llm model changed", "model", newConfig.LLM.Model)
	}
}

// OnReload registers a callback invoked with the new configuration
// after each successful reload
func (rc *ReloadableConfig) OnReload(fn func(*Config)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onReload = append(rc.onReload, fn)
}

// GetPath returns the configuration file path
func (rc *ReloadableConfig) GetPath() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.path
}
