// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package request

import (
	"errors"
	"fmt"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrConfigurationMissing is matched by every *ConfigError.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrEmptyPrompt is returned when there is neither text nor a file to send.
	ErrEmptyPrompt = errors.New("nothing to send")

	// ErrListUnavailable wraps a failed fetch of the model-configuration list.
	ErrListUnavailable = errors.New("model list unavailable")
)

// ConfigKind says why the configuration is missing.
type ConfigKind int

const (
	// NoModelSelected means RunSettings carries no model identifier.
	NoModelSelected ConfigKind = iota
	// ModelNotFound means the live list has no entry for the model.
	ModelNotFound
)

// String returns the kind name.
func (k ConfigKind) String() string {
	switch k {
	case NoModelSelected:
		return "no_model_selected"
	case ModelNotFound:
		return "model_not_found"
	default:
		return "unknown"
	}
}

// ConfigError reports a missing model configuration.
type ConfigError struct {
	Kind  ConfigKind
	Model string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Kind == ModelNotFound {
		return fmt.Sprintf("Configuration for model '%s' not found.", e.Model)
	}
	return "Configure your model in settings first."
}

// Is lets errors.Is match ErrConfigurationMissing.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

// IsNoModelSelected reports whether err means no model is selected.
func IsNoModelSelected(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) && ce.Kind == NoModelSelected
}

// IsModelNotFound reports whether err means the model is absent from the list.
func IsModelNotFound(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce) && ce.Kind == ModelNotFound
}
