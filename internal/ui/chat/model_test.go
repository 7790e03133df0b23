// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/catalog"
	"github.com/jeranaias/playground-tui/internal/config"
	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/session"
	"github.com/jeranaias/playground-tui/internal/stream"
	"github.com/jeranaias/playground-tui/internal/ui/styles"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type fakeCatalog struct {
	list []model.ModelConfiguration
	err  error
}

func (c *fakeCatalog) List(ctx context.Context) ([]model.ModelConfiguration, error) {
	return c.list, c.err
}

// posterFunc adapts a function to stream.Poster.
type posterFunc func(ctx context.Context) (io.ReadCloser, error)

func (f posterFunc) Post(ctx context.Context, body io.Reader, contentType string) (io.ReadCloser, error) {
	io.Copy(io.Discard, body)
	return f(ctx)
}

func replyWith(text string) posterFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	}
}

// blockingReply never sends anything until the turn is cancelled.
func blockingReply() posterFunc {
	return func(ctx context.Context) (io.ReadCloser, error) {
		pr, pw := io.Pipe()
		go func() {
			<-ctx.Done()
			pw.CloseWithError(ctx.Err())
		}()
		return pr, nil
	}
}

func newTestModel(t *testing.T, modelID string, poster stream.Poster) (Model, *config.Settings) {
	t.Helper()
	lister := &fakeCatalog{list: []model.ModelConfiguration{
		{Model: "gpt-4o", BaseURL: "https://api.example.com/v1", APIKey: "sk-test"},
		{Model: "llama3", BaseURL: "http://localhost:11434/v1"},
	}}

	s := model.DefaultRunSettings()
	s.Model = modelID
	settings := config.NewSettings(s)

	eng := stream.NewEngine(session.New(), request.NewBuilder(lister), poster, settings, stream.DefaultConfig())
	m := New(Deps{
		Engine:   eng,
		Stager:   attach.NewStager(nil),
		Catalog:  lister,
		Settings: settings,
		Theme:    styles.NewTheme(styles.ModeDark),
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), settings
}

// runCmd executes cmd and flattens batches. Commands that block (timers)
// are given up on after a short wait.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, runCmd(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(300 * time.Millisecond):
		return nil
	}
}

// drive feeds the turn and model-list messages produced by cmd back into m
// until none are left.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := runCmd(cmd)
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 1000, "message loop did not settle")
		msg := queue[0]
		queue = queue[1:]

		switch msg.(type) {
		case turnEventMsg, turnClosedMsg, modelsMsg:
		default:
			continue
		}
		updated, next := m.Update(msg)
		m = updated.(Model)
		queue = append(queue, runCmd(next)...)
	}
	return m
}

func typeAndSend(t *testing.T, m Model, text string) Model {
	t.Helper()
	m.input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return drive(t, updated.(Model), cmd)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 2))))
	return buf.Bytes()
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSubmit_StreamsReply(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("Hello world"))

	m = typeAndSend(t, m, "hi")

	msgs := m.engine.Session().Transcript().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Text)
	assert.Equal(t, "Hello world", msgs[1].Text)
	assert.False(t, msgs[1].Open)
	assert.Equal(t, stream.StateCompleted, m.engine.State())
	assert.Equal(t, 2, m.engine.Session().History().Len())
	assert.Empty(t, m.input.Value(), "input cleared after send")
	assert.Contains(t, m.View(), "Hello world")
}

func TestSubmit_NoModelShowsNotice(t *testing.T) {
	m, _ := newTestModel(t, "", replyWith("unused"))

	m = typeAndSend(t, m, "hi")

	assert.Equal(t, 0, m.engine.Session().Transcript().Len())
	assert.True(t, m.noticeErr)
	assert.Contains(t, m.notice, "Configure your model")
	assert.Equal(t, "hi", m.input.Value(), "input kept on rejected send")
	assert.True(t, m.showModels, "model list opened")
	assert.True(t, m.modelsLoaded)
}

func TestSubmit_ModelMissingFromListFails(t *testing.T) {
	m, _ := newTestModel(t, "deleted-model", replyWith("unused"))

	m = typeAndSend(t, m, "hi")

	last, ok := m.engine.Session().Transcript().Last()
	require.True(t, ok)
	assert.True(t, last.Failed)
	assert.Equal(t, "Failed to get response. Configuration for model 'deleted-model' not found.", last.Text)
	assert.Equal(t, 0, m.engine.Session().History().Len())
}

func TestSubmit_BlankInputIgnored(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("unused"))

	m = typeAndSend(t, m, "   ")

	assert.Equal(t, 0, m.engine.Session().Transcript().Len())
	assert.False(t, m.canSend())
}

func TestSubmit_AttachmentsMoveToTranscript(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("nice picture"))
	m.stager.Add(attach.NewFile("cat.png", pngBytes(t)))
	require.True(t, m.canSend(), "a staged file alone enables send")

	m = typeAndSend(t, m, "")

	assert.Equal(t, 0, m.stager.Len(), "stager emptied by send")
	msgs := m.engine.Session().Transcript().Messages()
	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].Images, 1)
	_, live := m.stager.Registry().Resolve(msgs[0].Images[0])
	assert.True(t, live, "preview owned by the transcript stays live")
	assert.Contains(t, m.View(), "[image cat.png 3x2]")
}

func TestSubmit_SecondSendWhileBusyIgnored(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", blockingReply())

	m.input.SetValue("first")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.True(t, m.engine.Busy())

	m.input.SetValue("second")
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.Equal(t, 2, m.engine.Session().Transcript().Len())
	assert.Equal(t, "second", m.input.Value())

	// Cancel so the blocked turn ends
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = drive(t, updated.(Model), cmd)
	assert.False(t, m.engine.Busy())
}

func TestCancel_FailsTurn(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", blockingReply())

	m.input.SetValue("hello")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = drive(t, updated.(Model), cmd)

	last, ok := m.engine.Session().Transcript().Last()
	require.True(t, ok)
	assert.True(t, last.Failed)
	assert.Equal(t, stream.FailureText(stream.ErrCanceled), last.Text)
	assert.Equal(t, "Request cancelled", m.notice)
	assert.Equal(t, 0, m.engine.Session().History().Len())
}

func TestQuit_ReleasesPreviews(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("ok"))
	m.stager.Add(attach.NewFile("a.png", pngBytes(t)))
	m = typeAndSend(t, m, "look")
	m.stager.Add(attach.NewFile("b.png", pngBytes(t)))
	require.Equal(t, 2, m.stager.Registry().Live())

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)

	assert.Equal(t, 0, m.stager.Registry().Live())
	assert.Equal(t, tea.QuitMsg{}, cmd())

	// Shutdown again is a no-op
	m.Shutdown()
	assert.Equal(t, 0, m.stager.Registry().Live())
}

// =============================================================================
// MODEL LIST TESTS
// =============================================================================

func TestModels_PanelSelectsModel(t *testing.T) {
	m, settings := newTestModel(t, "gpt-4o", replyWith("ok"))

	m.input.SetValue("/models")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = drive(t, updated.(Model), cmd)
	require.True(t, m.showModels)
	require.Len(t, m.models.Models, 2)
	assert.Contains(t, m.View(), "llama3")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.False(t, m.showModels)
	assert.Equal(t, "llama3", settings.RunSettings().Model)
}

func TestModels_StaleGenerationDropped(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("ok"))
	stale := m.modelsGen

	m.openModels()
	updated, cmd := m.Update(modelsMsg{gen: stale, result: catalogResult("old")})
	m = updated.(Model)

	assert.Nil(t, cmd)
	assert.False(t, m.modelsLoaded)

	// A tick for a closed panel does not fetch
	m.closeModels()
	updated, cmd = m.Update(modelsTickMsg{gen: m.modelsGen})
	m = updated.(Model)
	assert.Nil(t, cmd)
}

func TestModels_ListErrorShown(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("ok"))
	m.catalog = &fakeCatalog{err: assert.AnError}

	cmd := m.openModels()
	m = drive(t, m, cmd)

	assert.Contains(t, m.View(), "Model list unavailable")
	assert.Contains(t, m.renderStatusBar(), "models unavailable")
}

// =============================================================================
// COMMAND TESTS
// =============================================================================

func TestParseCommand(t *testing.T) {
	cmd, args, ok := parseCommand("  /SET temperature 0.5 ")
	require.True(t, ok)
	assert.Equal(t, "/set", cmd)
	assert.Equal(t, []string{"temperature", "0.5"}, args)

	_, _, ok = parseCommand("hello /set")
	assert.False(t, ok)
	_, _, ok = parseCommand("/path/one\n/path/two")
	assert.False(t, ok, "multi-line input is a message")
}

func TestApplySetting(t *testing.T) {
	m, settings := newTestModel(t, "gpt-4o", replyWith("ok"))

	require.NoError(t, m.applySetting("temperature", "0.2"))
	require.NoError(t, m.applySetting("max_tokens", "1024"))
	require.NoError(t, m.applySetting("top_p", "0.9"))
	require.NoError(t, m.applySetting("reasoning", "high"))

	s := settings.RunSettings()
	assert.Equal(t, 0.2, s.Temperature)
	assert.Equal(t, 1024, s.MaxTokens)
	assert.Equal(t, 0.9, s.TopP)
	assert.Equal(t, model.ReasoningHigh, s.ReasoningEffort)

	assert.Error(t, m.applySetting("temperature", "3"))
	assert.Error(t, m.applySetting("top_p", "-0.1"))
	assert.Error(t, m.applySetting("max_tokens", "0"))
	assert.Error(t, m.applySetting("reasoning", "extreme"))
	assert.Error(t, m.applySetting("color", "blue"))
	assert.Equal(t, 0.2, settings.RunSettings().Temperature, "rejected values leave settings alone")
}

func TestAttachAndDetachCommands(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("ok"))
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(a, []byte("notes"), 0o600))
	require.NoError(t, os.WriteFile(b, pngBytes(t), 0o600))

	updated, _ := m.runCommand("/attach", []string{a, b})
	m = updated.(Model)
	require.Equal(t, 2, m.stager.Len())
	assert.Contains(t, m.View(), "Attached (2)")

	updated, _ = m.runCommand("/detach", []string{"2"})
	m = updated.(Model)
	require.Equal(t, 1, m.stager.Len())
	assert.Equal(t, "a.txt", m.stager.Files()[0].Name)
	assert.Equal(t, 0, m.stager.Registry().Live(), "detached image released")

	updated, _ = m.runCommand("/detach", []string{"5"})
	m = updated.(Model)
	assert.True(t, m.noticeErr)

	updated, _ = m.runCommand("/attach", []string{filepath.Join(dir, "missing")})
	m = updated.(Model)
	assert.True(t, m.noticeErr)
	assert.Equal(t, 1, m.stager.Len())
}

func TestPaste_FilePathsAreStaged(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("ok"))
	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t), 0o600))

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(`"` + path + `"`)})
	m = updated.(Model)

	assert.Equal(t, 1, m.stager.Len())
	assert.Empty(t, m.input.Value())
	assert.Equal(t, 1, m.stager.Registry().Live())
}

func TestPaste_PlainTextGoesToInput(t *testing.T) {
	_, ok := pastedFiles("just some words")
	assert.False(t, ok)
	_, ok = pastedFiles("")
	assert.False(t, ok)

	m, _ := newTestModel(t, "gpt-4o", replyWith("ok"))
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hello there")})
	m = updated.(Model)
	assert.Equal(t, 0, m.stager.Len())
	assert.Equal(t, "hello there", m.input.Value())
}

func TestIsPaste(t *testing.T) {
	assert.True(t, isPaste(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/tmp/a.png")}))
	assert.False(t, isPaste(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}))
	assert.False(t, isPaste(tea.KeyMsg{Type: tea.KeyEnter}))
}

// =============================================================================
// RENDER TESTS
// =============================================================================

func TestRenderer_CachesFinishedEntries(t *testing.T) {
	r := newTranscriptRenderer(styles.NewTheme(styles.ModeDark), attach.NewPreviews(), false)
	msgs := []model.DisplayMessage{
		model.NewUserMessage("question", nil),
	}

	first := r.Render(msgs, 60, "")
	assert.Contains(t, first, "question")
	assert.Len(t, r.cache, 1)

	r.Render(msgs, 70, "")
	assert.Len(t, r.cache, 1, "cache rebuilt for the new width")
	assert.Equal(t, 70, r.width)
}

func TestRenderer_OpenEntryShowsSpinner(t *testing.T) {
	r := newTranscriptRenderer(styles.NewTheme(styles.ModeDark), attach.NewPreviews(), false)
	out := r.Render([]model.DisplayMessage{model.NewBotPlaceholder()}, 60, "|")
	assert.Contains(t, out, "thinking")
	assert.Empty(t, r.cache, "open entries are not cached")
}

func TestRenderer_ReleasedImage(t *testing.T) {
	r := newTranscriptRenderer(styles.NewTheme(styles.ModeDark), attach.NewPreviews(), false)
	out := r.Render([]model.DisplayMessage{
		model.NewUserMessage("", []model.PreviewRef{"preview://gone"}),
	}, 60, "")
	assert.Contains(t, out, "[image released]")
}

func TestSpinnerTickIgnoredWhenIdle(t *testing.T) {
	m, _ := newTestModel(t, "gpt-4o", replyWith("ok"))
	_, cmd := m.Update(spinner.TickMsg{})
	assert.Nil(t, cmd)
}

func catalogResult(ids ...string) catalog.Result {
	var r catalog.Result
	for _, id := range ids {
		r.Models = append(r.Models, model.ModelConfiguration{Model: id})
	}
	return r
}
