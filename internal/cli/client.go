// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/catalog"
	"github.com/jeranaias/playground-tui/internal/chatapi"
	"github.com/jeranaias/playground-tui/internal/config"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/session"
	"github.com/jeranaias/playground-tui/internal/stream"
)

// =============================================================================
// CLIENT WIRING
// =============================================================================

// chatClient is the client-side core shared by the tui and chat commands.
type chatClient struct {
	cfg      *config.Config
	catalog  *catalog.Client
	settings *config.Settings
	engine   *stream.Engine
	stager   *attach.Stager
	watcher  *config.Watcher
	logger   *slog.Logger
}

// newChatClient builds one session's engine from cfg.
func newChatClient(cfg *config.Config, cfgPath string, logger *slog.Logger) *chatClient {
	models := catalog.New(cfg.Endpoints.ModelsURL)
	settings := config.NewSettings(cfg.RunSettings())
	poster := chatapi.New(cfg.Endpoints.ChatURL, chatapi.WithConnectTimeout(cfg.ConnectTimeout()))

	sess := session.New()
	engine := stream.NewEngine(sess, request.NewBuilder(models), poster, settings, stream.Config{
		IdleTimeout: cfg.IdleTimeout(),
		Logger:      logger,
	})

	c := &chatClient{
		cfg:      cfg,
		catalog:  models,
		settings: settings,
		engine:   engine,
		stager:   attach.NewStager(nil),
		logger:   logger,
	}
	if cfgPath != "" {
		c.watcher = newSettingsWatcher(cfgPath, cfg, settings, logger)
	}
	logger.Debug("chat client ready",
		"session", sess.ID(),
		"models_url", cfg.Endpoints.ModelsURL,
		"chat_url", cfg.Endpoints.ChatURL,
	)
	return c
}

// newSettingsWatcher keeps settings in step with the config file. The
// --model flag overrides the file on every reload.
func newSettingsWatcher(path string, cfg *config.Config, settings *config.Settings, logger *slog.Logger) *config.Watcher {
	w := config.NewWatcher(path, cfg, settings, logger)
	if id := flags.model; id != "" {
		w.Override(func(c *config.Config) { c.Run.Model = id })
	}
	return w
}

// watch runs the config watcher until ctx is done. A missing config file
// is not an error.
func (c *chatClient) watch(ctx context.Context) {
	if c.watcher == nil {
		return
	}
	if _, err := os.Stat(c.watcher.Path()); errors.Is(err, os.ErrNotExist) {
		return
	}
	go func() {
		if err := c.watcher.Run(ctx); err != nil {
			c.logger.Warn("config watcher stopped", "error", err)
		}
	}()
}

// close releases every preview the session still holds.
func (c *chatClient) close() {
	c.engine.Cancel()
	c.stager.Clear()
	c.engine.Session().Close(c.stager.Registry())
}
