// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/session"
)

// Poster sends an encoded request and returns the reply body.
// Implemented by chatapi.Client.
type Poster interface {
	Post(ctx context.Context, body io.Reader, contentType string) (io.ReadCloser, error)
}

// SettingsSource supplies the RunSettings to use for the next turn.
// Implemented by config.Watcher.
type SettingsSource interface {
	RunSettings() model.RunSettings
}

// StaticSettings is a fixed SettingsSource.
type StaticSettings model.RunSettings

// RunSettings returns the settings unchanged.
func (s StaticSettings) RunSettings() model.RunSettings {
	return model.RunSettings(s)
}

// Config tunes the engine.
type Config struct {
	// IdleTimeout fails a turn when no fragment arrives for this long.
	// Zero waits forever.
	IdleTimeout time.Duration

	// ReadBufferSize is the size of each body read.
	ReadBufferSize int

	Logger *slog.Logger
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:    2 * time.Minute,
		ReadBufferSize: 4096,
	}
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine owns the turn state machine for one session.
type Engine struct {
	session  *session.Session
	builder  *request.Builder
	poster   Poster
	settings SettingsSource
	cfg      Config
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	turn   *Turn
	nextID uint64
}

// NewEngine creates an idle engine.
func NewEngine(sess *session.Session, builder *request.Builder, poster Poster, settings SettingsSource, cfg Config) *Engine {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = DefaultConfig().ReadBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if settings == nil {
		settings = StaticSettings(model.DefaultRunSettings())
	}
	return &Engine{
		session:  sess,
		builder:  builder,
		poster:   poster,
		settings: settings,
		cfg:      cfg,
		logger:   logger,
	}
}

// Session returns the session the engine writes to.
func (e *Engine) Session() *session.Session {
	return e.session
}

// State returns the current phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Busy reports whether a turn is open. Send must be refused while true.
func (e *Engine) Busy() bool {
	return e.State().InFlight()
}

// Current returns the open turn, or nil.
func (e *Engine) Current() *Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turn
}

// Settings returns the settings the next turn would use.
func (e *Engine) Settings() model.RunSettings {
	return e.settings.RunSettings()
}

// Begin starts a turn. It rejects the send, leaving the transcript
// untouched, when a turn is already open, when no model is selected, or
// when there is nothing to send. Otherwise it appends the user entry and the
// bot placeholder before returning.
func (e *Engine) Begin(text string, files []attach.File) (*Turn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.InFlight() {
		return nil, ErrTurnInFlight
	}

	settings := e.settings.RunSettings()
	in := request.Input{
		Text:      strings.TrimSpace(text),
		Files:     files,
		SessionID: e.session.ID(),
		Settings:  settings,
		History:   e.session.History().Turns(),
	}
	if err := request.Check(in); err != nil {
		return nil, err
	}

	tr := e.session.Transcript()
	tr.Append(model.NewUserMessage(in.Text, attach.PreviewRefs(files)))
	tr.Append(model.NewBotPlaceholder())
	e.session.Touch()

	e.nextID++
	turn := newTurn(e.nextID, in, e)
	e.turn = turn
	e.state = StateSending

	e.logger.Debug("turn started",
		"turn", turn.id,
		"model", settings.Model,
		"files", len(files),
		"history", len(in.History),
	)
	return turn, nil
}

// Apply folds one event into the transcript and history. Events from a
// turn other than the open one are ignored. It returns true when the
// transcript changed.
func (e *Engine) Apply(ev Event) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	turn := e.turn
	if turn == nil || ev.TurnID != turn.id {
		return false
	}
	tr := e.session.Transcript()

	switch ev.Kind {
	case EventStreaming:
		e.state = StateStreaming
		return false

	case EventFragment:
		turn.fragments++
		turn.received += len(ev.Text)
		return tr.AppendToLastBot(ev.Text)

	case EventCompleted:
		text, _ := tr.CloseLast()
		e.session.History().AppendPair(turn.input.Text, text)
		e.session.RecordTurn(false)
		e.finish(StateCompleted)
		e.logger.Info("turn completed",
			"turn", turn.id,
			"fragments", turn.fragments,
			"bytes", turn.received,
			"duration", time.Since(turn.started).Round(time.Millisecond),
		)
		return true

	case EventFailed:
		tr.ReplaceLastBot(FailureText(ev.Err), true)
		e.session.RecordTurn(true)
		e.finish(StateFailed)
		e.logger.Warn("turn failed",
			"turn", turn.id,
			"fragments", turn.fragments,
			"error", errString(ev.Err),
		)
		return true
	}
	return false
}

// finish closes the open turn. Caller holds mu.
func (e *Engine) finish(state State) {
	e.state = state
	e.turn = nil
}

// Cancel cancels the open turn, if any. The turn still ends with a Failed
// event that must be applied.
func (e *Engine) Cancel() bool {
	turn := e.Current()
	if turn == nil {
		return false
	}
	turn.Cancel()
	return true
}

// Send runs a whole turn synchronously, calling onUpdate with the bot
// entry after every change. It returns the Begin error, or the error that
// failed the turn.
func (e *Engine) Send(ctx context.Context, text string, files []attach.File, onUpdate func(model.DisplayMessage)) error {
	turn, err := e.Begin(text, files)
	if err != nil {
		return err
	}
	for ev := range turn.Events(ctx) {
		if e.Apply(ev) && onUpdate != nil {
			if last, ok := e.session.Transcript().Last(); ok {
				onUpdate(last)
			}
		}
	}
	return turn.Err()
}

// FailureText is the bot text shown for a failed turn.
func FailureText(err error) string {
	return FailurePrefix + errString(err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
