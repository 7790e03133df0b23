// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the playground backend.
//
// Endpoints:
//   - GET  /models - Model-configuration list ([] when unreadable)
//   - POST /models - Replace the list
//   - POST /chat   - Multipart chat turn, answered as streamed plain text
//   - GET  /health - Health check
//
// The chat endpoint always answers 200 once the form is accepted. Upstream
// failures appear in the body as "Error: <message>".
package server
