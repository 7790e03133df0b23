// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"sync"
)

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Transcript is the ordered display history of one session.
// Entries are only ever appended; the last entry may be mutated while it is
// an open bot entry.
type Transcript struct {
	mu       sync.RWMutex
	messages []DisplayMessage
	version  uint64
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{messages: make([]DisplayMessage, 0)}
}

// Append adds an entry at the tail.
func (t *Transcript) Append(msg DisplayMessage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if msg.Open && msg.stream == nil {
		msg.stream = &strings.Builder{}
		msg.stream.WriteString(msg.Text)
	}
	t.messages = append(t.messages, msg)
	t.version++
}

// AppendToLastBot appends delta to the last entry if it is an open bot entry.
// Returns false, leaving the transcript untouched, otherwise.
func (t *Transcript) AppendToLastBot(delta string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last := t.openBot()
	if last == nil {
		return false
	}
	if delta == "" {
		return true
	}
	last.stream.WriteString(delta)
	t.version++
	return true
}

// ReplaceLastBot replaces the text of the open bot entry and closes it.
// Used when a turn fails: the partial text is discarded.
func (t *Transcript) ReplaceLastBot(text string, failed bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last := t.openBot()
	if last == nil {
		return false
	}
	last.stream = nil
	last.Text = text
	last.Open = false
	last.Failed = failed
	t.version++
	return true
}

// CloseLast finalizes the open bot entry and returns its terminal text.
func (t *Transcript) CloseLast() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last := t.openBot()
	if last == nil {
		return "", false
	}
	last.Text = last.stream.String()
	last.stream = nil
	last.Open = false
	t.version++
	return last.Text, true
}

// openBot returns the last entry if it is an open bot entry. Caller holds mu.
func (t *Transcript) openBot() *DisplayMessage {
	if len(t.messages) == 0 {
		return nil
	}
	last := &t.messages[len(t.messages)-1]
	if !last.IsBot() || !last.Open {
		return nil
	}
	if last.stream == nil {
		last.stream = &strings.Builder{}
		last.stream.WriteString(last.Text)
	}
	return last
}

// Messages returns a copy of all entries in insertion order.
func (t *Transcript) Messages() []DisplayMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]DisplayMessage, len(t.messages))
	for i, m := range t.messages {
		out[i] = m.snapshot()
	}
	return out
}

// Last returns a copy of the last entry.
func (t *Transcript) Last() (DisplayMessage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.messages) == 0 {
		return DisplayMessage{}, false
	}
	return t.messages[len(t.messages)-1].snapshot(), true
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// HasOpenBot reports whether a bot entry is still receiving fragments.
func (t *Transcript) HasOpenBot() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.messages) == 0 {
		return false
	}
	last := t.messages[len(t.messages)-1]
	return last.IsBot() && last.Open
}

// Version increases on every mutation. Renderers can skip work when it has
// not changed since their last pass.
func (t *Transcript) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Images returns every preview ref held by transcript entries.
func (t *Transcript) Images() []PreviewRef {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var refs []PreviewRef
	for _, m := range t.messages {
		refs = append(refs, m.Images...)
	}
	return refs
}
