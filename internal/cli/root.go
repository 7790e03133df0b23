// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jeranaias/playground-tui/internal/config"
)

// Version is set at build time.
var Version = "dev"

// =============================================================================
// GLOBAL STATE
// =============================================================================

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	model      string
}

// appState is what PersistentPreRunE prepares for a command.
type appState struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger
	cleanup func() error
}

var (
	flags globalFlags
	rt    appState
)

// =============================================================================
// ROOT COMMAND
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "playground",
	Short: "Streaming chat playground for OpenAI-compatible models",
	Long: `playground is a terminal chat client for OpenAI-compatible models.

Pick a model from the configured list, attach images, and watch replies
stream in. "playground serve" runs the backend the client talks to.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		// The full-screen view owns stderr
		quiet := cmd.Name() == "playground" || cmd.Name() == "tui"
		return prepare(quiet && canRunTUI())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rt.cleanup != nil {
			if err := rt.cleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
	RunE: runTUI,
}

// prepare loads the configuration and sets up logging.
func prepare(quiet bool) error {
	cfg, path, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	if flags.model != "" {
		cfg.Run.Model = flags.model
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}

	level, ok := config.ParseLogLevel(cfg.Log.Level)
	if !ok {
		return fmt.Errorf("invalid log level %q (use debug, info, warn or error)", cfg.Log.Level)
	}
	logger, cleanup, err := config.SetupLogger(cfg.Log.File, level, quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	slog.SetDefault(logger)

	rt = appState{cfg: cfg, cfgPath: path, logger: logger, cleanup: cleanup}
	return nil
}

// loadConfig reads path, or the default config file when path is empty.
// The returned path is where the file lives (it may not exist yet).
func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadFromPath(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, "", err
	}
	defaultPath, _ := config.ConfigPath()
	return cfg, defaultPath, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ~/.playground/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&flags.model, "model", "m", "", "model identifier to use")

	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(versionCmd)
}
