// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/playground-tui/internal/request"
)

// =============================================================================
// TURN
// =============================================================================

// Turn is one send through to its reply reaching Completed or Failed.
type Turn struct {
	id      uint64
	input   request.Input
	engine  *Engine
	started time.Time

	// Only touched by Engine.Apply under the engine lock.
	fragments int
	received  int

	mu       sync.Mutex
	cancel   context.CancelFunc
	canceled bool
	running  bool
	stop     chan struct{}
	stopOnce sync.Once
	err      error
}

func newTurn(id uint64, in request.Input, e *Engine) *Turn {
	return &Turn{
		id:      id,
		input:   in,
		engine:  e,
		started: time.Now(),
		stop:    make(chan struct{}),
	}
}

// ID identifies the turn in its events.
func (t *Turn) ID() uint64 {
	return t.id
}

// Prompt returns the trimmed user text.
func (t *Turn) Prompt() string {
	return t.input.Text
}

// Cancel aborts the turn at its next suspension point. The turn still
// produces a Failed event.
func (t *Turn) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.canceled = true
	if t.cancel != nil {
		t.cancel()
	}
}

// Abandon cancels the turn and stops delivering events. Used when the
// consumer goes away; nothing more is applied.
func (t *Turn) Abandon() {
	t.Cancel()
	t.stopOnce.Do(func() { close(t.stop) })
}

// Err returns the error that failed the turn, once it has ended.
func (t *Turn) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Events starts the turn and returns its event channel. Every event is
// delivered in order; the channel is closed after the terminal event.
// Events may only be called once per turn.
func (t *Turn) Events(ctx context.Context) <-chan Event {
	ch := make(chan Event)

	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		close(ch)
		return ch
	}
	t.running = true
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	if t.canceled {
		cancel()
	}
	t.mu.Unlock()

	go func() {
		defer close(ch)
		defer cancel()
		t.run(ctx, func(ev Event) bool {
			ev.TurnID = t.id
			ev.At = time.Now()
			select {
			case ch <- ev:
				return true
			case <-t.stop:
				return false
			}
		})
	}()
	return ch
}

// run executes the request. emit returns false once the consumer is gone.
func (t *Turn) run(ctx context.Context, emit func(Event) bool) {
	fail := func(err error) {
		err = t.classify(ctx, err)
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()
		emit(Event{Kind: EventFailed, Err: err})
	}

	e := t.engine
	payload, err := e.builder.Build(ctx, t.input)
	if err != nil {
		fail(err)
		return
	}
	body, contentType, err := payload.Encode()
	if err != nil {
		fail(err)
		return
	}

	if err := ctx.Err(); err != nil {
		fail(err)
		return
	}
	rc, err := e.poster.Post(ctx, body, contentType)
	if err != nil {
		fail(err)
		return
	}
	defer rc.Close()

	if !emit(Event{Kind: EventStreaming}) {
		return
	}

	// The watchdog cancels the read when the backend goes quiet.
	var idle atomic.Bool
	readCtx, cancelRead := context.WithCancel(ctx)
	defer cancelRead()
	var watchdog *time.Timer
	if timeout := e.cfg.IdleTimeout; timeout > 0 {
		watchdog = time.AfterFunc(timeout, func() {
			idle.Store(true)
			cancelRead()
		})
		defer watchdog.Stop()
	}
	go func() {
		<-readCtx.Done()
		rc.Close()
	}()

	dec := NewDecoder()
	buf := make([]byte, e.cfg.ReadBufferSize)
	for {
		n, readErr := rc.Read(buf)
		if n > 0 {
			if watchdog != nil {
				watchdog.Reset(e.cfg.IdleTimeout)
			}
			if text := dec.Decode(buf[:n]); text != "" {
				if !emit(Event{Kind: EventFragment, Text: text}) {
					return
				}
			}
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) && readCtx.Err() == nil {
			if tail := dec.Flush(); tail != "" {
				if !emit(Event{Kind: EventFragment, Text: tail}) {
					return
				}
			}
			emit(Event{Kind: EventCompleted})
			return
		}
		if idle.Load() {
			fail(ErrIdleTimeout)
			return
		}
		fail(fmt.Errorf("read response: %w", readErr))
		return
	}
}

// classify replaces transport noise caused by cancellation with a plain
// reason.
func (t *Turn) classify(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	t.mu.Lock()
	canceled := t.canceled
	t.mu.Unlock()
	if canceled {
		return ErrCanceled
	}
	return ctx.Err()
}
