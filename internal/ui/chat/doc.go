// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat view for playground.

The view is a thin writer over the stream engine. Submitting the input
calls Engine.Begin, which appends the user entry and the bot placeholder
synchronously. The turn's events are then read one per tea.Msg and folded
in with Engine.Apply, so the Update loop is the only writer of the
transcript.

# Layout

  - Header: brand, selected model, session id
  - Transcript viewport (or the model list panel while it is open)
  - Staged attachments line
  - Input textarea
  - Status bar: turn state, model availability, key hints

# Keys

  - enter: send (enabled when there is text or a staged file)
  - alt+enter / ctrl+j: newline
  - esc: cancel the running turn, or close the model panel
  - ctrl+c: quit; a running turn is abandoned
  - pgup/pgdown: scroll the transcript

# Commands

  - /attach <path>...   stage files
  - /detach <n>         unstage file n (1-based)
  - /files              list staged files
  - /clear-files        unstage everything
  - /model [id]         show or select the model
  - /set <key> <value>  temperature, max_tokens, top_p, reasoning
  - /models             toggle the model list panel
  - /help, /quit

Pasting file paths (or dropping files onto the terminal) stages them
instead of inserting the text.
*/
package chat
