// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/playground-tui/internal/catalog"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/stream"
)

// listTimeout bounds one model-list fetch.
const listTimeout = 10 * time.Second

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// turnEventMsg delivers one event of the running turn. events is the
// channel to keep reading from until the terminal event.
type turnEventMsg struct {
	ev     stream.Event
	events <-chan stream.Event
}

// turnClosedMsg reports that a turn's channel closed without a terminal
// event reaching the view.
type turnClosedMsg struct {
	turnID uint64
}

// waitForEvent reads the next event of a turn.
func waitForEvent(turnID uint64, events <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return turnClosedMsg{turnID: turnID}
		}
		return turnEventMsg{ev: ev, events: events}
	}
}

// =============================================================================
// MODEL LIST MESSAGES
// =============================================================================

// modelsMsg carries one model-list fetch. gen is the generation that
// requested it; results of a superseded generation are dropped.
type modelsMsg struct {
	gen    uint64
	result catalog.Result
}

// modelsTickMsg schedules the next poll of a generation.
type modelsTickMsg struct {
	gen uint64
}

func fetchModels(ctx context.Context, lister request.Lister, gen uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, listTimeout)
		defer cancel()
		list, err := lister.List(ctx)
		return modelsMsg{gen: gen, result: catalog.Result{Models: list, Err: err}}
	}
}

func scheduleModelsPoll(interval time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return modelsTickMsg{gen: gen}
	})
}

// =============================================================================
// NOTICE MESSAGES
// =============================================================================

// noticeTTL is how long a status-bar notice stays up.
const noticeTTL = 6 * time.Second

// clearNoticeMsg clears the notice with the given sequence number.
type clearNoticeMsg struct {
	seq int
}

func clearNoticeAfter(seq int) tea.Cmd {
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}
