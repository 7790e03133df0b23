// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/playground-tui/internal/model"
)

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	rs := cfg.RunSettings()
	assert.False(t, rs.HasModel())
	assert.Equal(t, 1.0, rs.Temperature)
	assert.Equal(t, 512, rs.MaxTokens)
	assert.Equal(t, 1.0, rs.TopP)
	assert.Equal(t, model.ReasoningNone, rs.ReasoningEffort)
	assert.Equal(t, 30*time.Second, cfg.ConnectTimeout())
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[run]
model = "gpt-4o"
temperature = 0.0

[server]
store = "sqlite"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.Run.Model)
	assert.Equal(t, 0.0, cfg.Run.Temperature, "explicit zero must survive")
	assert.Equal(t, 512, cfg.Run.MaxTokens)
	assert.Equal(t, StoreSQLite, cfg.Server.Store)
	assert.Equal(t, "http://localhost:8000/chat", cfg.Endpoints.ChatURL)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\ntop_p = 3.5\nreasoning_effort = \"max\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "run.top_p")
	assert.Contains(t, err.Error(), "run.reasoning_effort")
}

func TestLoadFromPath_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run\nmodel="), 0600))
	_, err := LoadFromPath(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PLAYGROUND_CONFIG_DIR", t.TempDir())
	t.Setenv("PLAYGROUND_MODEL", "llama3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "llama3", cfg.Run.Model)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PLAYGROUND_CHAT_URL", "http://chat.internal:9000/chat")
	t.Setenv("PLAYGROUND_UPSTREAM", "langchain")
	t.Setenv("PLAYGROUND_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "http://chat.internal:9000/chat", cfg.Endpoints.ChatURL)
	assert.Equal(t, UpstreamLangchain, cfg.Server.Upstream)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate_URLs(t *testing.T) {
	cfg := Default()
	cfg.Endpoints.ModelsURL = "ftp://example.com/models"
	cfg.Endpoints.ChatURL = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoints.models_url")
	assert.Contains(t, err.Error(), "endpoints.chat_url")
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Run.Model = "mistral"
	cfg.Run.MaxTokens = 2048
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "mistral", loaded.Run.Model)
	assert.Equal(t, 2048, loaded.Run.MaxTokens)
}

// =============================================================================
// LOGGING
// =============================================================================

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		ok   bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"", slog.LevelInfo, true},
		{"loud", slog.LevelInfo, false},
	}
	for _, tc := range tests {
		got, ok := ParseLogLevel(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSetupLoggerWithWriters_Fanout(t *testing.T) {
	var text, js bytes.Buffer
	logger := SetupLoggerWithWriters(&text, &js, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("turn completed", "fragments", 3)

	assert.Contains(t, text.String(), "turn completed")
	assert.NotContains(t, text.String(), "hidden")
	assert.True(t, strings.HasPrefix(js.String(), "{"))
	assert.Contains(t, js.String(), `"fragments":3`)
}

func TestSetupLogger_FileOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "playground.log")
	logger, cleanup, err := SetupLogger(path, slog.LevelInfo, true)
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

// =============================================================================
// WATCHER
// =============================================================================

func TestSettings_Update(t *testing.T) {
	h := NewSettings(model.DefaultRunSettings())
	got := h.Update(func(s *model.RunSettings) { s.Model = "gpt-4o" })
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, "gpt-4o", h.RunSettings().Model)
}

func TestWatcher_ReloadUpdatesSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"a\"\n"), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	settings := NewSettings(cfg.RunSettings())
	w := NewWatcher(path, cfg, settings, nil)

	changed := make(chan *Config, 16)
	w.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"b\"\n"), 0600))

	// A write can surface as several events; wait for the one with the new content
	deadline := time.After(5 * time.Second)
	for seen := false; !seen; {
		select {
		case c := <-changed:
			seen = c.Run.Model == "b"
		case <-deadline:
			t.Fatal("no reload after write")
		}
	}
	assert.Equal(t, "b", settings.RunSettings().Model)
	assert.Equal(t, "b", w.Current().Run.Model)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_BadReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"a\"\n"), 0600))
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	settings := NewSettings(cfg.RunSettings())
	w := NewWatcher(path, cfg, settings, nil)

	require.NoError(t, os.WriteFile(path, []byte("[run]\ntemperature = 9\n"), 0600))
	assert.Error(t, w.Reload())
	assert.Equal(t, "a", settings.RunSettings().Model)
	assert.Equal(t, "a", w.Current().Run.Model)
}

func TestWatcher_SessionChoicesSurviveUnrelatedReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"a\"\n\n[ui]\ntheme = \"dark\"\n"), 0600))
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	settings := NewSettings(cfg.RunSettings())
	w := NewWatcher(path, cfg, settings, nil)

	settings.Update(func(s *model.RunSettings) {
		s.Model = "gpt-4o"
		s.Temperature = 0.2
	})

	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"a\"\n\n[ui]\ntheme = \"light\"\n"), 0600))
	require.NoError(t, w.Reload())

	got := settings.RunSettings()
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 0.2, got.Temperature)
	assert.Equal(t, "light", w.Current().UI.Theme)
}

func TestWatcher_ReloadAppliesOnlyChangedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"a\"\n"), 0600))
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	settings := NewSettings(cfg.RunSettings())
	w := NewWatcher(path, cfg, settings, nil)

	settings.Update(func(s *model.RunSettings) { s.Model = "gpt-4o" })

	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"a\"\ntemperature = 0.5\nmax_tokens = 64\n"), 0600))
	require.NoError(t, w.Reload())

	got := settings.RunSettings()
	assert.Equal(t, "gpt-4o", got.Model, "untouched key keeps the session value")
	assert.Equal(t, 0.5, got.Temperature)
	assert.Equal(t, 64, got.MaxTokens)
}

func TestWatcher_OverrideAppliedToReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"a\"\n"), 0600))
	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	cfg.Run.Model = "flagged"
	settings := NewSettings(cfg.RunSettings())
	w := NewWatcher(path, cfg, settings, nil)
	w.Override(func(c *Config) { c.Run.Model = "flagged" })

	require.NoError(t, os.WriteFile(path, []byte("[run]\nmodel = \"b\"\ntop_p = 0.9\n"), 0600))
	require.NoError(t, w.Reload())

	got := settings.RunSettings()
	assert.Equal(t, "flagged", got.Model)
	assert.Equal(t, 0.9, got.TopP)
	assert.Equal(t, "flagged", w.Current().Run.Model)
}
