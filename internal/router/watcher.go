/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package router

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"pgedge-nlsql/internal/logging"
)

// RulesWatcher reloads the router's decision table when the rules file
// changes on disk. A broken edit keeps the previous table active.
type RulesWatcher struct {
	watcher  *fsnotify.Watcher
	filePath string
	router   *Router
	done     chan bool
}

// NewRulesWatcher creates a watcher for the rules file backing router
func NewRulesWatcher(filePath string, router *Router) (*RulesWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	rw := &RulesWatcher{
		watcher:  watcher,
		filePath: filePath,
		router:   router,
		done:     make(chan bool),
	}

	// Watch the directory containing the file (not the file itself)
	// This is because editors often delete and recreate files on save
	dir := filepath.Dir(filePath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	return rw, nil
}

// Start begins watching for rules file changes
func (rw *RulesWatcher) Start() {
	go rw.watch()
}

// Stop stops watching for rules file changes
func (rw *RulesWatcher) Stop() {
	close(rw.done)
	rw.watcher.Close()
}

// reload parses the rules file and swaps it in
func (rw *RulesWatcher) reload() error {
	rules, err := LoadRulesFile(rw.filePath)
	if err != nil {
		return err
	}
	return rw.router.SetRules(rules)
}

// watch monitors file events and triggers reloads
func (rw *RulesWatcher) watch() {
	// Debounce timer to avoid multiple reloads for rapid changes
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case event, ok := <-rw.watcher.Events:
			if !ok {
				return
			}

			// Only process events for our specific file
			if event.Name != rw.filePath {
				continue
			}

			// Handle write and create events (editors may delete and recreate)
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, func() {
					if err := rw.reload(); err != nil {
						logging.Error("failed to reload router rules",
							"path", rw.filePath, "error", err.Error())
					} else {
						logging.Info("router rules reloaded", "path", rw.filePath)
					}
				})
			}

		case err, ok := <-rw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("rules watcher error", "path", rw.filePath, "error", err.Error())

		case <-rw.done:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}
