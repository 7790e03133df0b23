// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach stages user-selected files for the next send.
//
// Image files get a revocable preview reference from a Previews registry;
// other files get none and are displayed with a generic marker. Every
// reference the registry hands out must be released exactly once: the
// Stager releases on Remove, Replace and Clear, and Commit hands ownership
// of the staged refs to the caller (normally the user transcript entry,
// released when the session closes).
//
// # Usage
//
//	previews := attach.NewPreviews()
//	st := attach.NewStager(previews)
//
//	f, _ := attach.LoadFile("diagram.png")
//	st.Add(f)
//	st.Remove(0) // preview released
//
//	files := st.Commit() // stager is empty, refs now owned by the caller
package attach
