// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading, logging setup, and live
// reload for playground.
//
// Configuration is read from a TOML file, with built-in defaults for every
// key that is absent and environment variable overrides applied last.
//
// Configuration file location:
//   - $PLAYGROUND_CONFIG_DIR/config.toml, if set
//   - ~/.playground/config.toml
//   - Built-in defaults
//
// # Example
//
//	[endpoints]
//	models_url = "http://localhost:8000/models"
//	chat_url = "http://localhost:8000/chat"
//
//	[run]
//	model = "gpt-4o"
//	temperature = 0.7
//	max_tokens = 1024
//	top_p = 1.0
//	reasoning_effort = "none"
//
//	[stream]
//	connect_timeout_secs = 30
//	idle_timeout_secs = 120
//
//	[server]
//	addr = ":8000"
//	store = "json"
//	models_file = "models.json"
//	upstream = "compat"
//
//	[log]
//	level = "info"
//	file = ""
//
// # Live reload
//
// A Watcher keeps a Settings holder in sync with the file so the next send
// picks up edited run settings. A turn already in flight keeps the settings
// it started with.
package config
