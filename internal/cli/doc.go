// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the playground command line.
//
// # Commands
//
//   - playground (tui): full-screen chat view; falls back to chat when
//     stdout is not a terminal
//   - playground chat: line-oriented chat with input history
//   - playground serve: the /models and /chat backend
//   - playground models list [--watch]: print the model-configuration list
//   - playground models set <file.json>: replace the list
//   - playground version
//
// Global flags --config, --log-level and --model apply to every command.
package cli
