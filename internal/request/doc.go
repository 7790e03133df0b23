// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package request assembles the outbound chat request.
//
// A Builder resolves the active ModelConfiguration fresh on every call (the
// list is never cached) and produces a Payload that encodes as one
// multipart/form-data body. Two failures are reported as
// ErrConfigurationMissing: no model selected (checked before any network
// access) and a selected model absent from the live list (one lookup, no
// retry).
//
// # Payload fields
//
//	user_prompt       trimmed user text
//	messages          JSON array of context turns, as of call time
//	session_id        session identifier
//	model_name        selected model
//	temperature       float
//	max_tokens        int
//	top_p             float
//	reasoning_effort  none|low|medium|high
//	base_url          resolved endpoint
//	api_key           resolved credential
//	files             one part per attachment
package request
