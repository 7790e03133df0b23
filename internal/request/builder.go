// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package request

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/model"
)

// Lister returns the live model-configuration list.
type Lister interface {
	List(ctx context.Context) ([]model.ModelConfiguration, error)
}

// Input is everything a send contributes to the request.
type Input struct {
	Text      string
	Files     []attach.File
	SessionID string
	Settings  model.RunSettings

	// History is the context as of call time, excluding the turn being sent.
	History []model.ContextTurn
}

// =============================================================================
// BUILDER
// =============================================================================

// Builder composes chat requests.
type Builder struct {
	catalog Lister
}

// NewBuilder creates a builder that resolves configurations from catalog.
func NewBuilder(catalog Lister) *Builder {
	return &Builder{catalog: catalog}
}

// Check validates in without any network access. Callers use it to reject a
// send before anything is appended to the transcript.
func Check(in Input) error {
	if !in.Settings.HasModel() {
		return &ConfigError{Kind: NoModelSelected}
	}
	if strings.TrimSpace(in.Text) == "" && len(in.Files) == 0 {
		return ErrEmptyPrompt
	}
	return nil
}

// Build resolves the model configuration and returns the payload.
func (b *Builder) Build(ctx context.Context, in Input) (*Payload, error) {
	if err := Check(in); err != nil {
		return nil, err
	}

	cfg, err := b.Resolve(ctx, in.Settings.Model)
	if err != nil {
		return nil, err
	}

	history := in.History
	if history == nil {
		history = []model.ContextTurn{}
	}

	return &Payload{
		Prompt:          strings.TrimSpace(in.Text),
		History:         history,
		SessionID:       in.SessionID,
		Model:           in.Settings.Model,
		Temperature:     in.Settings.Temperature,
		MaxTokens:       in.Settings.MaxTokens,
		TopP:            in.Settings.TopP,
		ReasoningEffort: in.Settings.ReasoningEffort,
		BaseURL:         cfg.BaseURL,
		APIKey:          cfg.APIKey,
		Files:           in.Files,
	}, nil
}

// Resolve looks up id in a freshly fetched list. It performs exactly one
// lookup and never retries.
func (b *Builder) Resolve(ctx context.Context, id string) (model.ModelConfiguration, error) {
	if strings.TrimSpace(id) == "" {
		return model.ModelConfiguration{}, &ConfigError{Kind: NoModelSelected}
	}
	if b.catalog == nil {
		return model.ModelConfiguration{}, &ConfigError{Kind: ModelNotFound, Model: id}
	}

	list, err := b.catalog.List(ctx)
	if err != nil {
		return model.ModelConfiguration{}, fmt.Errorf("%w: %w", ErrListUnavailable, err)
	}
	cfg, ok := model.FindConfiguration(list, id)
	if !ok {
		return model.ModelConfiguration{}, &ConfigError{Kind: ModelNotFound, Model: id}
	}
	return cfg, nil
}
