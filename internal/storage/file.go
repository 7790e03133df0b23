// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps the list in one JSON file.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// NewFileStore creates a store backed by path. The file is created on the
// first Replace.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// List reads the file. Missing or corrupt files read as an empty list.
func (s *FileStore) List(ctx context.Context) ([]model.ModelConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("model list unreadable, serving empty list", "path", s.path, "error", err)
		}
		return []model.ModelConfiguration{}, nil
	}

	var list []model.ModelConfiguration
	if err := json.Unmarshal(data, &list); err != nil {
		s.logger.Warn("model list corrupt, serving empty list", "path", s.path, "error", err)
		return []model.ModelConfiguration{}, nil
	}
	if list == nil {
		list = []model.ModelConfiguration{}
	}
	return list, nil
}

// Replace writes list atomically.
func (s *FileStore) Replace(ctx context.Context, list []model.ModelConfiguration) error {
	if err := Validate(list); err != nil {
		return err
	}
	if list == nil {
		list = []model.ModelConfiguration{}
	}
	data, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return fmt.Errorf("encode model list: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The file holds credentials
	if err := util.AtomicWriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write model list: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
