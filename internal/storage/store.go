// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/playground-tui/internal/model"
)

// ErrInvalidEntry is wrapped by Validate for entries that cannot be stored.
var ErrInvalidEntry = errors.New("invalid model configuration")

// ModelStore loads and replaces the model-configuration list.
type ModelStore interface {
	// List returns the stored list. It never returns nil on success.
	List(ctx context.Context) ([]model.ModelConfiguration, error)

	// Replace stores list in place of everything stored before.
	Replace(ctx context.Context, list []model.ModelConfiguration) error

	Close() error
}

// Validate rejects entries without a model identifier and duplicate
// identifiers.
func Validate(list []model.ModelConfiguration) error {
	seen := make(map[string]bool, len(list))
	for i, c := range list {
		id := strings.TrimSpace(c.Model)
		if id == "" {
			return fmt.Errorf("%w: entry %d has no model", ErrInvalidEntry, i)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate model %q", ErrInvalidEntry, id)
		}
		seen[id] = true
	}
	return nil
}
