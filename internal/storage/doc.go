// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists the model-configuration list for the backend.
//
// Two stores implement ModelStore:
//
//   - FileStore: one JSON file, written atomically. A missing or unreadable
//     file reads as an empty list.
//   - SQLiteStore: one table in a pure Go SQLite database (modernc.org/sqlite).
//     Replace swaps the whole list in a single transaction.
//
// Both stores only replace the list as a whole, matching the POST /models
// contract; there is no per-entry update.
package storage
