// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package internal contains race detection tests that cross package lines.
//
// Run with: go test -race -v ./internal/...
//
// The access patterns match the running client: the Update loop writes the
// transcript while renderers read it, the config watcher replaces settings
// while sends read them, and previews are created and released from the
// stager and the session at shutdown.
package internal

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/config"
	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/server"
	"github.com/jeranaias/playground-tui/internal/session"
	"github.com/jeranaias/playground-tui/internal/stream"
)

// =============================================================================
// TEST CONFIGURATION
// =============================================================================

const (
	// Number of concurrent goroutines for race tests
	raceConcurrency = 50
	// Number of iterations per goroutine
	raceIterations = 50
	// Timeout for race tests
	raceTimeout = 30 * time.Second
)

// =============================================================================
// SETTINGS CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_SettingsReadWrite reads settings while others update and
// replace them. Every read must see a whole value.
func TestConcurrency_SettingsReadWrite(t *testing.T) {
	settings := config.NewSettings(model.DefaultRunSettings())

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	var torn atomic.Int64

	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				if ctx.Err() != nil {
					return
				}
				s := settings.RunSettings()
				// Writers always set Model and MaxTokens together
				if (s.Model == "a" && s.MaxTokens != 100) || (s.Model == "b" && s.MaxTokens != 200) {
					torn.Add(1)
				}
			}
		}()
	}

	for i := 0; i < raceConcurrency/5; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < raceIterations/5; j++ {
				if idx%2 == 0 {
					settings.Update(func(s *model.RunSettings) {
						s.Model = "a"
						s.MaxTokens = 100
					})
				} else {
					next := model.DefaultRunSettings()
					next.Model = "b"
					next.MaxTokens = 200
					settings.Replace(next)
				}
			}
		}(i)
	}

	wg.Wait()
	assert.Zero(t, torn.Load(), "read a partially written settings value")
}

// =============================================================================
// TRANSCRIPT CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_TranscriptStreaming appends fragments from one writer
// while many readers snapshot the transcript.
func TestConcurrency_TranscriptStreaming(t *testing.T) {
	tr := model.NewTranscript()
	tr.Append(model.NewUserMessage("hi", nil))
	tr.Append(model.NewBotPlaceholder())

	var wg sync.WaitGroup
	done := make(chan struct{})

	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var lastLen int
			for {
				select {
				case <-done:
					return
				default:
				}
				msgs := tr.Messages()
				text := msgs[len(msgs)-1].Text
				// Fragments only ever extend the open entry
				if len(text) < lastLen {
					t.Errorf("open entry shrank from %d to %d", lastLen, len(text))
					return
				}
				lastLen = len(text)
				_ = tr.Version()
				_ = tr.HasOpenBot()
			}
		}()
	}

	for i := 0; i < raceIterations*10; i++ {
		require.True(t, tr.AppendToLastBot("x"))
	}
	text, ok := tr.CloseLast()
	close(done)
	wg.Wait()

	require.True(t, ok)
	assert.Equal(t, strings.Repeat("x", raceIterations*10), text)
}

// =============================================================================
// PREVIEW CONCURRENCY TESTS
// =============================================================================

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

// TestConcurrency_PreviewsReleasedOnce stages and releases previews from many
// goroutines. Every ref is released exactly once.
func TestConcurrency_PreviewsReleasedOnce(t *testing.T) {
	previews := attach.NewPreviews()
	data := tinyPNG(t)

	refs := make(chan model.PreviewRef, raceConcurrency*raceIterations)
	var wg sync.WaitGroup
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				refs <- previews.Create(attach.NewFile("p.png", data))
			}
		}()
	}
	wg.Wait()
	close(refs)

	all := make([]model.PreviewRef, 0, raceConcurrency*raceIterations)
	for ref := range refs {
		all = append(all, ref)
	}
	require.Equal(t, len(all), previews.Live())

	// Two releasers race over every ref
	var released atomic.Int64
	for k := 0; k < 2; k++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, ref := range all {
				if previews.Release(ref) {
					released.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(len(all)), released.Load())
	assert.Zero(t, previews.Live())
}

// =============================================================================
// ENGINE CONCURRENCY TESTS
// =============================================================================

type staticLister []model.ModelConfiguration

func (l staticLister) List(ctx context.Context) ([]model.ModelConfiguration, error) {
	return l, nil
}

type replyPoster string

func (p replyPoster) Post(ctx context.Context, body io.Reader, contentType string) (io.ReadCloser, error) {
	io.Copy(io.Discard, body)
	return io.NopCloser(strings.NewReader(string(p))), nil
}

// TestConcurrency_OneTurnAtATime races many Begin calls. Exactly one turn
// opens; every other call is rejected without touching the transcript.
func TestConcurrency_OneTurnAtATime(t *testing.T) {
	list := staticLister{{Model: "m", BaseURL: "http://x/v1"}}
	s := model.DefaultRunSettings()
	s.Model = "m"
	eng := stream.NewEngine(session.New(), request.NewBuilder(list), replyPoster("ok"),
		stream.StaticSettings(s), stream.DefaultConfig())

	var wg sync.WaitGroup
	var opened atomic.Int64
	var winner atomic.Pointer[stream.Turn]
	start := make(chan struct{})
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			turn, err := eng.Begin("hello", nil)
			if err == nil {
				opened.Add(1)
				winner.Store(turn)
				return
			}
			assert.ErrorIs(t, err, stream.ErrTurnInFlight)
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(1), opened.Load())
	assert.Equal(t, 2, eng.Session().Transcript().Len())

	for ev := range winner.Load().Events(context.Background()) {
		eng.Apply(ev)
	}
	assert.Equal(t, stream.StateCompleted, eng.State())
	assert.Equal(t, 2, eng.Session().History().Len())
}

// =============================================================================
// SERVER CONCURRENCY TESTS
// =============================================================================

// TestConcurrency_RateLimiter hits the limiter from many client addresses.
func TestConcurrency_RateLimiter(t *testing.T) {
	limiter := server.NewRateLimiter(1000, 10)

	var wg sync.WaitGroup
	var allowed atomic.Int64
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			ip := "10.0.0." + string(rune('0'+idx%10))
			for j := 0; j < raceIterations; j++ {
				if limiter.Allow(ip) {
					allowed.Add(1)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Positive(t, allowed.Load())
	assert.LessOrEqual(t, limiter.Clients(), 10)
}
