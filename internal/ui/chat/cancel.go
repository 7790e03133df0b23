// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	"github.com/jeranaias/playground-tui/internal/stream"
)

// =============================================================================
// TURN AND CONTEXT MANAGEMENT
// =============================================================================

// cancelManager tracks the view's root context and the running turn.
// It is held by pointer so Bubble Tea's model copies share one mutex.
type cancelManager struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	turn   *stream.Turn
	closed bool
}

func newCancelManager(parent context.Context) *cancelManager {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &cancelManager{ctx: ctx, cancel: cancel}
}

// context returns the root context turns and fetches derive from.
func (cm *cancelManager) context() context.Context {
	return cm.ctx
}

// track records the running turn.
func (cm *cancelManager) track(t *stream.Turn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.turn = t
}

// finished forgets the tracked turn once its terminal event was applied.
func (cm *cancelManager) finished(id uint64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.turn != nil && cm.turn.ID() == id {
		cm.turn = nil
	}
}

// cancelTurn cancels the running turn. Its Failed event still arrives.
func (cm *cancelManager) cancelTurn() bool {
	cm.mu.Lock()
	t := cm.turn
	cm.mu.Unlock()
	if t == nil {
		return false
	}
	t.Cancel()
	return true
}

// close abandons the running turn and cancels the root context. Safe to
// call more than once; reports whether this call did the work.
func (cm *cancelManager) close() bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.closed {
		return false
	}
	cm.closed = true
	if cm.turn != nil {
		cm.turn.Abandon()
		cm.turn = nil
	}
	cm.cancel()
	return true
}
