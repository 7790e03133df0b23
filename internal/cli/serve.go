// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/playground-tui/internal/config"
	"github.com/jeranaias/playground-tui/internal/server"
	"github.com/jeranaias/playground-tui/internal/storage"
	"github.com/jeranaias/playground-tui/internal/upstream"
)

// shutdownTimeout bounds graceful shutdown of open streams.
const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	addr     string
	store    string
	upstream string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the model-list and chat backend",
	Long: `Run the HTTP backend the chat client talks to.

  GET  /models   the stored model-configuration list
  POST /models   replace the list
  POST /chat     stream a completion from the selected model as plain text
  GET  /health   liveness`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().StringVar(&serveFlags.store, "store", "", "model list store: json or sqlite")
	serveCmd.Flags().StringVar(&serveFlags.upstream, "upstream", "", "upstream client: compat or langchain")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := rt.cfg
	if serveFlags.addr != "" {
		cfg.Server.Addr = serveFlags.addr
	}
	if serveFlags.store != "" {
		cfg.Server.Store = serveFlags.store
	}
	if serveFlags.upstream != "" {
		cfg.Server.Upstream = serveFlags.upstream
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := openStore(cfg.Server, rt.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	// The server bounds each completion with its own context
	provider, err := upstream.New(cfg.Server.Upstream, &http.Client{})
	if err != nil {
		return err
	}

	srv := server.New(store, provider, server.Options{
		Addr:            cfg.Server.Addr,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimit:       cfg.Server.RateLimit,
		RateBurst:       cfg.Server.RateBurst,
		UpstreamTimeout: cfg.UpstreamTimeout(),
	}, rt.logger)

	ctx, stop := signalContext()
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// openStore opens the configured model-list store.
func openStore(cfg config.ServerConfig, logger *slog.Logger) (storage.ModelStore, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		logger.Info("using sqlite model store", "path", cfg.SQLitePath)
		store, err := storage.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreJSON, "":
		logger.Info("using json model store", "path", cfg.ModelsFile)
		return storage.NewFileStore(cfg.ModelsFile, logger), nil
	default:
		return nil, fmt.Errorf("unknown store %q (use %s or %s)", cfg.Store, config.StoreJSON, config.StoreSQLite)
	}
}
