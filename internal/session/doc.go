// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties one Transcript and one ContextHistory to a single
// opaque session identifier.
//
// A Session is created once at process start. Its identifier is sent with
// every chat request so the backend can group requests into one logical
// conversation. Nothing is persisted: the transcript and history live only
// as long as the process.
//
// # Usage
//
//	s := session.New()
//	fmt.Println(s.ID())
//	s.Transcript().Append(model.NewUserMessage("hi", nil))
//
//	// On shutdown, hand back every preview ref still held by the transcript
//	s.Close(previews)
package session
