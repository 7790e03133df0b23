// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript and the
// model context history.
//
// Two containers are kept apart. The
// Transcript is what the user sees, and the ContextHistory is what is
// replayed to the model on the next request.
//
// # Key Types
//
//   - DisplayMessage: one rendered entry (user or bot), with preview refs
//   - Transcript: ordered display entries; only the open bot entry mutates
//   - ContextTurn: role-tagged turn ({role, content}) sent back to the model
//   - ContextHistory: append-pair log of completed turns
//   - RunSettings: generation parameters for one request
//   - ModelConfiguration: endpoint and credential for one model
//
// # Usage
//
//	t := model.NewTranscript()
//	t.Append(model.NewUserMessage("hi", nil))
//	t.Append(model.NewBotPlaceholder())
//	t.AppendToLastBot("Hel")
//	t.AppendToLastBot("lo")
//	t.CloseLast()
//
//	h := model.NewContextHistory()
//	h.AppendPair("hi", "Hello")
//	data, _ := h.MarshalJSON()
//
// Both containers are safe for concurrent readers, but are expected to have
// a single writer.
package model
