// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across playground.
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateWidth: cell-width aware truncation for terminal output
//   - FormatBytes: human-readable sizes for attachment listings
package util
