// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session ties one Transcript and one ContextHistory to a single
// opaque session identifier.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/playground-tui/internal/model"
)

// =============================================================================
// SESSION
// =============================================================================

// Releaser gives back preview refs. Implemented by attach.Previews.
type Releaser interface {
	Release(ref model.PreviewRef) bool
}

// Session is the single logical conversation of this process.
type Session struct {
	id        string
	startedAt time.Time

	transcript *model.Transcript
	history    *model.ContextHistory

	mu           sync.Mutex
	lastActivity time.Time
	stats        Stats
	closed       bool
}

// Stats counts turns by outcome.
type Stats struct {
	Completed int
	Failed    int
}

// Total returns the number of finished turns.
func (s Stats) Total() int {
	return s.Completed + s.Failed
}

// New creates a session with a fresh identifier.
func New() *Session {
	return NewWithID(uuid.NewString())
}

// NewWithID creates a session with a fixed identifier. Used by tests.
func NewWithID(id string) *Session {
	now := time.Now()
	return &Session{
		id:           id,
		startedAt:    now,
		lastActivity: now,
		transcript:   model.NewTranscript(),
		history:      model.NewContextHistory(),
	}
}

// ID returns the session identifier. It never changes.
func (s *Session) ID() string {
	return s.id
}

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time {
	return s.startedAt
}

// Transcript returns the display history.
func (s *Session) Transcript() *model.Transcript {
	return s.transcript
}

// History returns the model context history.
func (s *Session) History() *model.ContextHistory {
	return s.history
}

// =============================================================================
// ACTIVITY
// =============================================================================

// Touch records user activity.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns the time of the last recorded activity.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Duration returns how long the session has been running.
func (s *Session) Duration() time.Duration {
	return time.Since(s.startedAt)
}

// RecordTurn counts a finished turn.
func (s *Session) RecordTurn(failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if failed {
		s.stats.Failed++
	} else {
		s.stats.Completed++
	}
	s.lastActivity = time.Now()
}

// Stats returns the turn counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close releases every preview ref held by the transcript. Safe to call
// more than once; only the first call releases.
func (s *Session) Close(r Releaser) int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	s.closed = true
	s.mu.Unlock()

	if r == nil {
		return 0
	}
	released := 0
	for _, ref := range s.transcript.Images() {
		if r.Release(ref) {
			released++
		}
	}
	return released
}
