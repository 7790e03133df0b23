// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/catalog"
	"github.com/jeranaias/playground-tui/internal/config"
	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/stream"
	"github.com/jeranaias/playground-tui/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Deps wires the chat view to the core.
type Deps struct {
	Engine   *stream.Engine
	Stager   *attach.Stager
	Catalog  request.Lister
	Settings *config.Settings
	Theme    *styles.Theme

	// Markdown renders completed bot entries with glamour.
	Markdown     bool
	PollInterval time.Duration
	Logger       *slog.Logger

	// Context bounds every turn and fetch started by the view.
	Context context.Context
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	engine       *stream.Engine
	stager       *attach.Stager
	catalog      request.Lister
	settings     *config.Settings
	theme        *styles.Theme
	logger       *slog.Logger
	pollInterval time.Duration

	cancelMgr *cancelManager
	renderer  *transcriptRenderer

	// Dimensions
	width  int
	height int

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	keyMap   KeyMap

	// Transcript version last pushed into the viewport
	renderedVersion uint64
	renderedWidth   int

	// Model list
	models       catalog.Result
	modelsLoaded bool
	modelsGen    uint64
	showModels   bool
	modelCursor  int

	// Status-bar notice
	notice    string
	noticeErr bool
	noticeSeq int

	quitting bool
}

// New creates the chat view.
func New(d Deps) Model {
	if d.Theme == nil {
		d.Theme = styles.NewTheme(styles.ModeAuto)
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.PollInterval <= 0 {
		d.PollInterval = catalog.DefaultPollInterval
	}
	if d.Stager == nil {
		d.Stager = attach.NewStager(nil)
	}
	if d.Settings == nil {
		d.Settings = config.NewSettings(d.Engine.Settings())
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Prompt = d.Theme.ShortcutKey
	ta.BlurredStyle = ta.FocusedStyle
	ta.KeyMap.InsertNewline = DefaultKeyMap().Newline
	ta.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = d.Theme.Spinner

	return Model{
		engine:       d.Engine,
		stager:       d.Stager,
		catalog:      d.Catalog,
		settings:     d.Settings,
		theme:        d.Theme,
		logger:       d.Logger,
		pollInterval: d.PollInterval,
		cancelMgr:    newCancelManager(d.Context),
		renderer:     newTranscriptRenderer(d.Theme, d.Stager.Registry(), d.Markdown),
		viewport:     vp,
		input:        ta,
		spinner:      sp,
		keyMap:       DefaultKeyMap(),
		modelsGen:    1,
	}
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and fetches the model list once.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.catalog != nil {
		cmds = append(cmds, fetchModels(m.cancelMgr.context(), m.catalog, m.modelsGen))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case turnEventMsg:
		return m.handleTurnEvent(msg)

	case turnClosedMsg:
		m.refreshViewport()
		return m, nil

	case modelsMsg:
		return m.handleModels(msg)

	case modelsTickMsg:
		if msg.gen != m.modelsGen || !m.showModels || m.catalog == nil {
			return m, nil
		}
		return m, fetchModels(m.cancelMgr.context(), m.catalog, msg.gen)

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
			m.noticeErr = false
		}
		return m, nil

	case spinner.TickMsg:
		if !m.engine.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.Shutdown()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.cancelMgr.cancelTurn() {
			return m.setNotice("Cancelling...", false)
		}
		if m.showModels {
			m.closeModels()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp), key.Matches(msg, m.keyMap.PageDown):
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.showModels {
		switch {
		case key.Matches(msg, m.keyMap.Up):
			if m.modelCursor > 0 {
				m.modelCursor--
			}
			return m, nil
		case key.Matches(msg, m.keyMap.Down):
			if m.modelCursor < len(m.models.Models)-1 {
				m.modelCursor++
			}
			return m, nil
		case key.Matches(msg, m.keyMap.Submit) && m.input.Value() == "":
			return m.selectCursorModel()
		}
	}

	if isPaste(msg) {
		if files, ok := pastedFiles(string(msg.Runes)); ok {
			m.stager.Paste(files...)
			m.layout()
			return m.setNotice(attachedNotice(files), false)
		}
	}

	if key.Matches(msg, m.keyMap.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// canSend reports whether the send action is enabled.
func (m Model) canSend() bool {
	if m.engine.Busy() {
		return false
	}
	return hasText(m.input.Value()) || m.stager.Len() > 0
}

// submit runs a slash command or starts a turn.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if cmd, args, ok := parseCommand(text); ok {
		m.input.Reset()
		return m.runCommand(cmd, args)
	}
	if !m.canSend() {
		return m, nil
	}

	turn, err := m.engine.Begin(text, m.stager.Files())
	if err != nil {
		if errors.Is(err, stream.ErrTurnInFlight) || errors.Is(err, request.ErrEmptyPrompt) {
			return m, nil
		}
		if request.IsNoModelSelected(err) && !m.showModels {
			// Take the user straight to the model list
			open := m.openModels()
			updated, notice := m.setNotice(err.Error(), true)
			return updated, tea.Batch(notice, open)
		}
		return m.setNotice(err.Error(), true)
	}

	// Preview refs now belong to the transcript entry
	m.stager.Commit()
	m.input.Reset()
	m.cancelMgr.track(turn)
	m.layout()
	m.viewport.GotoBottom()

	events := turn.Events(m.cancelMgr.context())
	return m, tea.Batch(waitForEvent(turn.ID(), events), m.spinner.Tick)
}

// handleTurnEvent folds one event in and asks for the next.
func (m Model) handleTurnEvent(msg turnEventMsg) (tea.Model, tea.Cmd) {
	m.engine.Apply(msg.ev)
	m.refreshViewport()

	if !msg.ev.Kind.Terminal() {
		return m, waitForEvent(msg.ev.TurnID, msg.events)
	}

	m.cancelMgr.finished(msg.ev.TurnID)

	if msg.ev.Kind == stream.EventFailed && errors.Is(msg.ev.Err, stream.ErrCanceled) {
		return m.setNotice("Request cancelled", false)
	}
	return m, nil
}

// =============================================================================
// MODEL LIST
// =============================================================================

func (m Model) handleModels(msg modelsMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.modelsGen {
		return m, nil
	}
	m.models = msg.result
	m.modelsLoaded = true
	if m.modelCursor >= len(m.models.Models) {
		m.modelCursor = max(0, len(m.models.Models)-1)
	}
	if msg.result.Err != nil {
		m.logger.Debug("model list fetch failed", "error", msg.result.Err)
	}
	if m.showModels {
		return m, scheduleModelsPoll(m.pollInterval, msg.gen)
	}
	return m, nil
}

// openModels shows the panel and starts polling under a new generation.
func (m *Model) openModels() tea.Cmd {
	m.showModels = true
	m.modelsGen++
	current := m.settings.RunSettings().Model
	for i, c := range m.models.Models {
		if c.Model == current {
			m.modelCursor = i
		}
	}
	if m.catalog == nil {
		return nil
	}
	return fetchModels(m.cancelMgr.context(), m.catalog, m.modelsGen)
}

// closeModels hides the panel. Fetches still in flight are dropped.
func (m *Model) closeModels() {
	m.showModels = false
	m.modelsGen++
}

func (m Model) selectCursorModel() (tea.Model, tea.Cmd) {
	if m.modelCursor < 0 || m.modelCursor >= len(m.models.Models) {
		return m, nil
	}
	id := m.models.Models[m.modelCursor].Model
	m.selectModel(id)
	m.closeModels()
	return m.setNotice("Model set to "+id, false)
}

func (m *Model) selectModel(id string) {
	m.settings.Update(func(s *model.RunSettings) { s.Model = id })
	m.logger.Info("model selected", "model", id)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Shutdown abandons the running turn and releases every preview ref held by
// the stager and the transcript. Safe to call more than once.
func (m Model) Shutdown() {
	if !m.cancelMgr.close() {
		return
	}
	m.stager.Clear()
	released := m.engine.Session().Close(m.stager.Registry())
	m.logger.Debug("chat view closed", "previews_released", released)
}

// setNotice shows a transient status-bar message.
func (m Model) setNotice(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = text
	m.noticeErr = isErr
	return m, clearNoticeAfter(m.noticeSeq)
}

// layout sizes the components for the current window.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.input.SetWidth(m.width)

	used := headerHeight + statusHeight + m.input.Height() + inputChrome
	if m.stager.Len() > 0 {
		used += attachmentsHeight
	}
	vpHeight := m.height - used
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = m.width
	m.viewport.Height = vpHeight
	m.refreshViewport()
}

// refreshViewport re-renders the transcript when it or the width changed,
// or while a turn is open (the spinner animates).
func (m *Model) refreshViewport() {
	tr := m.engine.Session().Transcript()
	version := tr.Version()
	if version == m.renderedVersion && m.width == m.renderedWidth && !tr.HasOpenBot() {
		return
	}
	atBottom := m.viewport.AtBottom() || version != m.renderedVersion
	m.viewport.SetContent(m.renderer.Render(tr.Messages(), m.viewport.Width, m.spinner.View()))
	m.renderedVersion = version
	m.renderedWidth = m.width
	if atBottom {
		m.viewport.GotoBottom()
	}
}
