// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"sync"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role is the role tag of a context turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// ContextTurn is one role-tagged turn replayed to the model.
type ContextTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// CONTEXT HISTORY
// =============================================================================

// ContextHistory is the model's memory of the conversation. It only grows,
// one (user, assistant) pair at a time, and is never reordered.
type ContextHistory struct {
	mu    sync.RWMutex
	turns []ContextTurn
}

// NewContextHistory creates an empty history.
func NewContextHistory() *ContextHistory {
	return &ContextHistory{turns: make([]ContextTurn, 0)}
}

// AppendPair appends the user turn and the assistant turn as one unit.
func (h *ContextHistory) AppendPair(userText, assistantText string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns,
		ContextTurn{Role: RoleUser, Content: userText},
		ContextTurn{Role: RoleAssistant, Content: assistantText},
	)
}

// Turns returns a copy of the history in order.
func (h *ContextHistory) Turns() []ContextTurn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]ContextTurn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of turns (always even).
func (h *ContextHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// MarshalJSON serializes the history as a JSON array of turns. An empty
// history encodes as [] rather than null.
func (h *ContextHistory) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Turns())
}
