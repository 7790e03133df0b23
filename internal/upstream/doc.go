// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upstream forwards one chat turn to an OpenAI-compatible model
// endpoint and streams the reply back as text deltas.
//
// Two providers implement Provider:
//
//   - CompatProvider speaks the /chat/completions streaming protocol
//     directly over net/http and parses the SSE response.
//   - LangchainProvider goes through langchaingo's openai client.
//
// Both replay the supplied history verbatim, then append the new user
// message. Attached images travel as data URLs inside that message.
//
// # Usage
//
//	p, err := upstream.New(upstream.KindCompat, nil)
//	err = p.Stream(ctx, req, func(delta string) error {
//	    _, err := w.Write([]byte(delta))
//	    return err
//	})
package upstream
