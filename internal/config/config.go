// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading, logging setup, and live
// reload for playground.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete playground configuration.
type Config struct {
	Endpoints EndpointsConfig `toml:"endpoints" json:"endpoints"`
	Run       RunConfig       `toml:"run" json:"run"`
	Stream    StreamConfig    `toml:"stream" json:"stream"`
	Server    ServerConfig    `toml:"server" json:"server"`
	UI        UIConfig        `toml:"ui" json:"ui"`
	Log       LogConfig       `toml:"log" json:"log"`
}

// EndpointsConfig locates the backend collaborators.
type EndpointsConfig struct {
	// ModelsURL serves GET/POST of the model-configuration list
	ModelsURL string `toml:"models_url" json:"models_url"`

	// ChatURL accepts the multipart chat request
	ChatURL string `toml:"chat_url" json:"chat_url"`
}

// RunConfig holds the generation parameters.
type RunConfig struct {
	Model           string  `toml:"model" json:"model"`
	Temperature     float64 `toml:"temperature" json:"temperature"`
	MaxTokens       int     `toml:"max_tokens" json:"max_tokens"`
	TopP            float64 `toml:"top_p" json:"top_p"`
	ReasoningEffort string  `toml:"reasoning_effort" json:"reasoning_effort"`
}

// StreamConfig bounds how long a turn may wait.
type StreamConfig struct {
	// ConnectTimeoutSecs bounds the wait for response headers (0 = no limit)
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs"`

	// IdleTimeoutSecs bounds the gap between two fragments (0 = no limit)
	IdleTimeoutSecs int `toml:"idle_timeout_secs" json:"idle_timeout_secs"`

	// PollIntervalSecs is the model-list refresh rate of the model view
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs"`
}

// ServerConfig configures `playground serve`.
type ServerConfig struct {
	Addr string `toml:"addr" json:"addr"`

	// Store is "json" or "sqlite"
	Store      string `toml:"store" json:"store"`
	ModelsFile string `toml:"models_file" json:"models_file"`
	SQLitePath string `toml:"sqlite_path" json:"sqlite_path"`

	// Upstream is "compat" (OpenAI-compatible SSE) or "langchain"
	Upstream            string `toml:"upstream" json:"upstream"`
	UpstreamTimeoutSecs int    `toml:"upstream_timeout_secs" json:"upstream_timeout_secs"`

	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`

	// RateLimit is requests per second per client IP (0 = unlimited)
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is "auto", "dark" or "light"
	Theme string `toml:"theme" json:"theme"`

	// Markdown renders bot replies with glamour once they complete
	Markdown bool `toml:"markdown" json:"markdown"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// Allowed enumerations.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"

	UpstreamCompat    = "compat"
	UpstreamLangchain = "langchain"
)

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	run := model.DefaultRunSettings()
	return &Config{
		Endpoints: EndpointsConfig{
			ModelsURL: "http://localhost:8000/models",
			ChatURL:   "http://localhost:8000/chat",
		},
		Run: RunConfig{
			Temperature:     run.Temperature,
			MaxTokens:       run.MaxTokens,
			TopP:            run.TopP,
			ReasoningEffort: string(run.ReasoningEffort),
		},
		Stream: StreamConfig{
			ConnectTimeoutSecs: 30,
			IdleTimeoutSecs:    120,
			PollIntervalSecs:   2,
		},
		Server: ServerConfig{
			Addr:                ":8000",
			Store:               StoreJSON,
			ModelsFile:          "models.json",
			SQLitePath:          "models.db",
			Upstream:            UpstreamCompat,
			UpstreamTimeoutSecs: 300,
			AllowedOrigins:      []string{"*"},
			RateLimit:           10,
			RateBurst:           20,
		},
		UI: UIConfig{
			Theme:    "auto",
			Markdown: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// RunSettings returns the run section as the value object used per request.
func (c *Config) RunSettings() model.RunSettings {
	return model.RunSettings{
		Model:           strings.TrimSpace(c.Run.Model),
		Temperature:     c.Run.Temperature,
		MaxTokens:       c.Run.MaxTokens,
		TopP:            c.Run.TopP,
		ReasoningEffort: model.ParseReasoningEffort(c.Run.ReasoningEffort),
	}
}

// ConnectTimeout returns the header wait bound.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Stream.ConnectTimeoutSecs) * time.Second
}

// IdleTimeout returns the between-fragment wait bound.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Stream.IdleTimeoutSecs) * time.Second
}

// PollInterval returns the model-list refresh rate.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Stream.PollIntervalSecs) * time.Second
}

// UpstreamTimeout returns the bound on one upstream completion.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Server.UpstreamTimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the playground configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv("PLAYGROUND_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".playground"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads the default config file, falling back to defaults when it does
// not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file. Keys absent
// from the file keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills empty string fields that must never be empty.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Run.ReasoningEffort == "" {
		c.Run.ReasoningEffort = d.Run.ReasoningEffort
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.Store == "" {
		c.Server.Store = d.Server.Store
	}
	if c.Server.ModelsFile == "" {
		c.Server.ModelsFile = d.Server.ModelsFile
	}
	if c.Server.SQLitePath == "" {
		c.Server.SQLitePath = d.Server.SQLitePath
	}
	if c.Server.Upstream == "" {
		c.Server.Upstream = d.Server.Upstream
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# playground configuration file\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	for field, raw := range map[string]string{
		"endpoints.models_url": c.Endpoints.ModelsURL,
		"endpoints.chat_url":   c.Endpoints.ChatURL,
	} {
		if err := validateURL(raw); err != nil {
			add(field, err.Error())
		}
	}

	if c.Run.Temperature < 0 || c.Run.Temperature > 2 {
		add("run.temperature", "must be between 0 and 2")
	}
	if c.Run.MaxTokens <= 0 {
		add("run.max_tokens", "must be positive")
	}
	if c.Run.TopP < 0 || c.Run.TopP > 1 {
		add("run.top_p", "must be between 0 and 1")
	}
	switch strings.ToLower(c.Run.ReasoningEffort) {
	case "none", "low", "medium", "high":
	default:
		add("run.reasoning_effort", "must be one of none, low, medium, high")
	}

	if c.Stream.ConnectTimeoutSecs < 0 {
		add("stream.connect_timeout_secs", "must not be negative")
	}
	if c.Stream.IdleTimeoutSecs < 0 {
		add("stream.idle_timeout_secs", "must not be negative")
	}
	if c.Stream.PollIntervalSecs < 0 {
		add("stream.poll_interval_secs", "must not be negative")
	}

	switch c.Server.Store {
	case StoreJSON, StoreSQLite:
	default:
		add("server.store", "must be json or sqlite")
	}
	switch c.Server.Upstream {
	case UpstreamCompat, UpstreamLangchain:
	default:
		add("server.upstream", "must be compat or langchain")
	}
	if c.Server.RateLimit < 0 {
		add("server.rate_limit", "must not be negative")
	}

	switch c.UI.Theme {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "must be auto, dark or light")
	}

	if _, ok := ParseLogLevel(c.Log.Level); !ok {
		add("log.level", "must be debug, info, warn or error")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - PLAYGROUND_MODEL: overrides run.model
//   - PLAYGROUND_MODELS_URL: overrides endpoints.models_url
//   - PLAYGROUND_CHAT_URL: overrides endpoints.chat_url
//   - PLAYGROUND_SERVER_ADDR: overrides server.addr
//   - PLAYGROUND_STORE: overrides server.store
//   - PLAYGROUND_UPSTREAM: overrides server.upstream
//   - PLAYGROUND_LOG_LEVEL: overrides log.level
//   - PLAYGROUND_LOG_FILE: overrides log.file
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"PLAYGROUND_MODEL", &c.Run.Model},
		{"PLAYGROUND_MODELS_URL", &c.Endpoints.ModelsURL},
		{"PLAYGROUND_CHAT_URL", &c.Endpoints.ChatURL},
		{"PLAYGROUND_SERVER_ADDR", &c.Server.Addr},
		{"PLAYGROUND_STORE", &c.Server.Store},
		{"PLAYGROUND_UPSTREAM", &c.Server.Upstream},
		{"PLAYGROUND_LOG_LEVEL", &c.Log.Level},
		{"PLAYGROUND_LOG_FILE", &c.Log.File},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.key); v != "" {
			*o.target = v
		}
	}
}
