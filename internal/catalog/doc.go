// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package catalog is the HTTP client for the model-configuration list.
//
// The chat core only reads the list: once before enabling send, and once
// fresh per send to resolve the active configuration. Replace exists for
// the `models set` command and is never called from the send path.
//
// Watch polls the list on an interval while a view needs live
// availability. Results that arrive after the caller's context is done are
// dropped without error.
package catalog
