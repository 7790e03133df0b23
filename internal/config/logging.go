// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLogLevel maps a level name to a slog level.
func ParseLogLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO", "":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// SetupLogger creates the process logger. Text goes to stderr unless quiet
// (the TUI owns the terminal); JSON goes to logFile when one is set.
// The returned cleanup closes the file.
func SetupLogger(logFile string, level slog.Level, quiet bool) (*slog.Logger, func() error, error) {
	var stderr io.Writer = os.Stderr
	if quiet {
		stderr = nil
	}

	if logFile == "" {
		return SetupLoggerWithWriters(stderr, nil, level), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return SetupLoggerWithWriters(stderr, nil, level), func() error { return nil },
			fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Fall back to stderr-only if the file cannot be opened
		return SetupLoggerWithWriters(stderr, nil, level), func() error { return nil },
			fmt.Errorf("open log file: %w", err)
	}

	return SetupLoggerWithWriters(stderr, file, level), file.Close, nil
}

// SetupLoggerWithWriters creates a logger with custom writers. A nil writer
// is skipped; with both nil the logger discards everything.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if stderr != nil {
		handlers = append(handlers, slog.NewTextHandler(stderr, opts))
	}
	if file != nil {
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	switch len(handlers) {
	case 0:
		return slog.New(slog.NewTextHandler(io.Discard, opts))
	case 1:
		return slog.New(handlers[0])
	default:
		return slog.New(slogmulti.Fanout(handlers...))
	}
}
