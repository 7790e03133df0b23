// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/jeranaias/playground-tui/internal/model"
)

// =============================================================================
// SETTINGS HOLDER
// =============================================================================

// Settings holds the RunSettings for the next send. Safe for concurrent use.
type Settings struct {
	mu sync.RWMutex
	s  model.RunSettings
}

// NewSettings creates a holder with initial settings.
func NewSettings(s model.RunSettings) *Settings {
	return &Settings{s: s}
}

// RunSettings returns a copy of the current settings.
func (h *Settings) RunSettings() model.RunSettings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.s
}

// Replace swaps in new settings.
func (h *Settings) Replace(s model.RunSettings) {
	h.mu.Lock()
	h.s = s
	h.mu.Unlock()
}

// Update applies fn to the current settings.
func (h *Settings) Update(fn func(*model.RunSettings)) model.RunSettings {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(&h.s)
	return h.s
}

// =============================================================================
// FILE WATCHER
// =============================================================================

// Watcher reloads the config file whenever it changes.
type Watcher struct {
	path     string
	settings *Settings
	logger   *slog.Logger

	mu        sync.Mutex
	current   *Config
	overrides []func(*Config)
	onChange  []func(*Config)
}

// NewWatcher creates a watcher for path that keeps settings up to date.
// cfg is the configuration already loaded from path.
func NewWatcher(path string, cfg *Config, settings *Settings, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{path: path, current: cfg, settings: settings, logger: logger}
}

// Path returns the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Current returns the last successfully loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Override registers fn to adjust every freshly loaded config before it is
// compared with the previous one. Command-line flags go here.
func (w *Watcher) Override(fn func(*Config)) {
	w.mu.Lock()
	w.overrides = append(w.overrides, fn)
	w.mu.Unlock()
}

// OnChange registers fn to run after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	w.onChange = append(w.onChange, fn)
	w.mu.Unlock()
}

// Reload reads the file now. On error the previous configuration stays.
// Only the [run] keys whose value changed in the file are applied to the
// settings, so choices made during the session survive unrelated edits.
func (w *Watcher) Reload() error {
	cfg, err := LoadFromPath(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	for _, fn := range w.overrides {
		fn(cfg)
	}
	prev := w.current
	w.current = cfg
	callbacks := append([]func(*Config){}, w.onChange...)
	w.mu.Unlock()

	if w.settings != nil {
		next := cfg.RunSettings()
		if prev == nil {
			w.settings.Replace(next)
		} else {
			old := prev.RunSettings()
			w.settings.Update(func(s *model.RunSettings) { mergeChanged(s, old, next) })
		}
	}
	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// Run watches the file until ctx is done. The parent directory is watched
// so editors that replace the file by rename are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	name := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if err := w.Reload(); err != nil {
				w.logger.Warn("config reload failed, keeping previous settings", "path", w.path, "error", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.path)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

// mergeChanged copies into s every field that differs between old and next.
func mergeChanged(s *model.RunSettings, old, next model.RunSettings) {
	if old.Model != next.Model {
		s.Model = next.Model
	}
	if old.Temperature != next.Temperature {
		s.Temperature = next.Temperature
	}
	if old.MaxTokens != next.MaxTokens {
		s.MaxTokens = next.MaxTokens
	}
	if old.TopP != next.TopP {
		s.TopP = next.TopP
	}
	if old.ReasoningEffort != next.ReasoningEffort {
		s.ReasoningEffort = next.ReasoningEffort
	}
}
