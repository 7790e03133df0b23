// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream runs one chat turn at a time and folds the streamed reply
// into the session transcript.
//
// # State machine
//
//	Idle ──Begin──▶ Sending ──2xx body──▶ Streaming ──EOF──▶ Completed
//	                   │                      │
//	                   └──────error───────────┴──────────▶ Failed
//
// Begin synchronously appends the user entry and an empty bot placeholder,
// then returns a Turn. While a turn is Sending or Streaming every further
// Begin is rejected with ErrTurnInFlight.
//
// # Single writer
//
// The goroutine started by Turn.Events only produces Events; it never
// touches the transcript or the context history. The owner of the Engine
// (the Bubble Tea update loop, or Engine.Send) applies events one at a
// time with Engine.Apply. Each fragment is applied as soon as it is
// received, in arrival order.
//
// # Waiting and cancellation
//
// The only suspension point is the read of the next fragment. Turn.Cancel
// aborts that read and the turn fails. Config.IdleTimeout fails the turn
// when no fragment arrives for that long; the chat transport bounds the
// wait for response headers separately.
//
// # Usage
//
//	eng := stream.NewEngine(sess, builder, chatClient, settings, stream.DefaultConfig())
//	err := eng.Send(ctx, "hello", nil, func(m model.DisplayMessage) {
//	    fmt.Print(m.Text)
//	})
package stream
