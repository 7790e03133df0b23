// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the format of ModelConfiguration.LastUpdated.
const DateLayout = "2006-01-02"

// =============================================================================
// RUN SETTINGS
// =============================================================================

// ReasoningEffort is the reasoning budget requested from the model.
type ReasoningEffort string

const (
	ReasoningNone   ReasoningEffort = "none"
	ReasoningLow    ReasoningEffort = "low"
	ReasoningMedium ReasoningEffort = "medium"
	ReasoningHigh   ReasoningEffort = "high"
)

// ParseReasoningEffort maps s to a known effort, falling back to none.
func ParseReasoningEffort(s string) ReasoningEffort {
	switch e := ReasoningEffort(strings.ToLower(strings.TrimSpace(s))); e {
	case ReasoningLow, ReasoningMedium, ReasoningHigh:
		return e
	default:
		return ReasoningNone
	}
}

// Forwardable reports whether the effort should be sent upstream.
// "none" means the parameter is omitted.
func (e ReasoningEffort) Forwardable() bool {
	return e == ReasoningLow || e == ReasoningMedium || e == ReasoningHigh
}

// Default generation parameters.
const (
	DefaultTemperature = 1.0
	DefaultMaxTokens   = 512
	DefaultTopP        = 1.0
)

// RunSettings holds the generation parameters for one request. It is passed
// by value and not modified while a request is in flight.
type RunSettings struct {
	Model           string          `json:"model" toml:"model"`
	Temperature     float64         `json:"temperature" toml:"temperature"`
	MaxTokens       int             `json:"max_tokens" toml:"max_tokens"`
	TopP            float64         `json:"top_p" toml:"top_p"`
	ReasoningEffort ReasoningEffort `json:"reasoning_effort" toml:"reasoning_effort"`
}

// DefaultRunSettings returns settings with no model selected.
func DefaultRunSettings() RunSettings {
	return RunSettings{
		Temperature:     DefaultTemperature,
		MaxTokens:       DefaultMaxTokens,
		TopP:            DefaultTopP,
		ReasoningEffort: ReasoningNone,
	}
}

// HasModel reports whether a model identifier is set.
func (s RunSettings) HasModel() bool {
	return strings.TrimSpace(s.Model) != ""
}

// SettingNames lists the keys accepted by Set.
var SettingNames = []string{"temperature", "max_tokens", "top_p", "reasoning"}

// Set parses value and stores it in the named parameter. On error s is
// unchanged.
func (s *RunSettings) Set(name, value string) error {
	value = strings.TrimSpace(value)

	switch strings.ToLower(name) {
	case "temperature", "temp":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 || v > 2 {
			return fmt.Errorf("temperature must be a number between 0 and 2")
		}
		s.Temperature = v
	case "top_p", "topp":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil || v < 0 || v > 1 {
			return fmt.Errorf("top_p must be a number between 0 and 1")
		}
		s.TopP = v
	case "max_tokens", "maxtokens":
		v, err := strconv.Atoi(value)
		if err != nil || v <= 0 {
			return fmt.Errorf("max_tokens must be a positive integer")
		}
		s.MaxTokens = v
	case "reasoning", "reasoning_effort":
		effort := ParseReasoningEffort(value)
		if string(effort) != strings.ToLower(value) {
			return fmt.Errorf("reasoning must be one of none, low, medium, high")
		}
		s.ReasoningEffort = effort
	default:
		return fmt.Errorf("unknown setting %q (one of %s)", name, strings.Join(SettingNames, ", "))
	}
	return nil
}

// =============================================================================
// MODEL CONFIGURATION
// =============================================================================

// ModelConfiguration is one entry of the model-configuration list.
type ModelConfiguration struct {
	Model       string `json:"model"`
	BaseURL     string `json:"baseUrl"`
	APIKey      string `json:"apiKey"`
	LastUpdated string `json:"lastUpdated"`
}

// Touch stamps the entry with today's date.
func (c *ModelConfiguration) Touch(now time.Time) {
	c.LastUpdated = now.Format(DateLayout)
}

// FindConfiguration returns the entry whose identifier equals id.
func FindConfiguration(list []ModelConfiguration, id string) (ModelConfiguration, bool) {
	for _, c := range list {
		if c.Model == id {
			return c, true
		}
	}
	return ModelConfiguration{}, false
}

// MaskedKey returns the credential with all but the last four characters hidden.
func (c ModelConfiguration) MaskedKey() string {
	if len(c.APIKey) <= 4 {
		return strings.Repeat("*", len(c.APIKey))
	}
	return strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
}
