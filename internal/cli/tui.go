// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/spf13/cobra"

	"github.com/jeranaias/playground-tui/internal/ui/chat"
	"github.com/jeranaias/playground-tui/internal/ui/styles"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the full-screen chat view (default)",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

// runTUI starts the full-screen view, or the line REPL when there is no
// terminal to draw on.
func runTUI(cmd *cobra.Command, args []string) error {
	if !canRunTUI() {
		rt.logger.Debug("no terminal, falling back to line chat")
		return runChat(cmd, args)
	}

	ctx, stop := signalContext()
	defer stop()

	c := newChatClient(rt.cfg, rt.cfgPath, rt.logger)
	defer c.close()
	c.watch(ctx)

	return chat.Run(ctx, chat.Deps{
		Engine:       c.engine,
		Stager:       c.stager,
		Catalog:      c.catalog,
		Settings:     c.settings,
		Theme:        styles.NewTheme(rt.cfg.UI.Theme),
		Markdown:     rt.cfg.UI.Markdown,
		PollInterval: rt.cfg.PollInterval(),
		Logger:       rt.logger,
	})
}
