// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"time"
)

// =============================================================================
// STATE
// =============================================================================

// State is the phase of the current (or last) turn.
type State int

const (
	StateIdle State = iota
	StateSending
	StateStreaming
	StateCompleted
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// InFlight reports whether a turn is open in this state.
func (s State) InFlight() bool {
	return s == StateSending || s == StateStreaming
}

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies what happened to a turn.
type EventKind int

const (
	// EventStreaming means the backend accepted the request and the body is open.
	EventStreaming EventKind = iota
	// EventFragment carries decoded text.
	EventFragment
	// EventCompleted means the body ended without error.
	EventCompleted
	// EventFailed carries the error that ended the turn.
	EventFailed
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventStreaming:
		return "streaming"
	case EventFragment:
		return "fragment"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no event follows this one.
func (k EventKind) Terminal() bool {
	return k == EventCompleted || k == EventFailed
}

// Event is one step of a turn, produced by Turn.Events.
type Event struct {
	TurnID uint64
	Kind   EventKind
	Text   string
	Err    error
	At     time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTurnInFlight is returned by Begin while another turn is open.
	ErrTurnInFlight = errors.New("a response is still being composed")

	// ErrIdleTimeout ends a turn when no fragment arrived within Config.IdleTimeout.
	ErrIdleTimeout = errors.New("no data received from backend")

	// ErrCanceled ends a turn cancelled with Turn.Cancel.
	ErrCanceled = errors.New("request cancelled")
)

// FailurePrefix starts the bot text of every failed turn.
const FailurePrefix = "Failed to get response. "
