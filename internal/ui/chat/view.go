// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/playground-tui/internal/stream"
	"github.com/jeranaias/playground-tui/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat view.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	sections := []string{m.renderHeader()}
	if m.showModels {
		sections = append(sections, m.renderModelPanel())
	} else {
		sections = append(sections, m.viewport.View())
	}
	if m.stager.Len() > 0 {
		sections = append(sections, m.renderAttachments())
	}
	sections = append(sections,
		m.theme.Input.Width(m.width).Render(m.input.View()),
		m.renderStatusBar(),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("playground")

	current := m.settings.RunSettings().Model
	if current == "" {
		current = "no model"
	}
	info := m.theme.HeaderInfo.Render(fmt.Sprintf("%s  session %s",
		current, shortID(m.engine.Session().ID())))

	gap := m.width - lipgloss.Width(brand) - lipgloss.Width(info) - 2
	if gap < 1 {
		gap = 1
	}
	line := brand + strings.Repeat(" ", gap) + info
	return m.theme.Header.Width(m.width).Render(clampWidth(line, m.width-2))
}

func (m Model) renderAttachments() string {
	files := m.stager.Files()
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = fmt.Sprintf("%d:%s", i+1, f.Name)
	}
	line := fmt.Sprintf("Attached (%d): %s", len(files), strings.Join(names, ", "))
	return m.theme.Attachments.Render(util.TruncateWidth(line, m.width-2))
}

// renderModelPanel lists the configured models in place of the transcript.
func (m Model) renderModelPanel() string {
	var b strings.Builder
	b.WriteString(m.theme.PanelTitle.Render("Models"))
	b.WriteString("\n\n")

	switch {
	case !m.modelsLoaded:
		b.WriteString(m.theme.Muted.Render("Loading..."))
	case m.models.Err != nil:
		b.WriteString(m.theme.StatusError.Render("Model list unavailable: " + m.models.Err.Error()))
	case len(m.models.Models) == 0:
		b.WriteString(m.theme.Muted.Render("No models configured"))
	default:
		current := m.settings.RunSettings().Model
		for i, c := range m.models.Models {
			marker := "  "
			if c.Model == current {
				marker = "* "
			}
			line := fmt.Sprintf("%s%-24s %s  %s", marker, c.Model, c.BaseURL, c.MaskedKey())
			if i == m.modelCursor {
				b.WriteString(m.theme.PanelSelected.Render(line))
			} else {
				b.WriteString(line)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Shortcut("up/down", "move") + "  " +
		m.theme.Shortcut("enter", "select") + "  " +
		m.theme.Shortcut("esc", "close"))

	height := m.viewport.Height - 2
	if height < 1 {
		height = 1
	}
	return m.theme.Panel.Width(m.width - 2).Height(height).Render(b.String())
}

func (m Model) renderStatusBar() string {
	var state string
	switch m.engine.State() {
	case stream.StateSending:
		state = m.theme.StatusBusy.Render(m.spinner.View() + " sending")
	case stream.StateStreaming:
		state = m.theme.StatusBusy.Render(m.spinner.View() + " streaming")
	case stream.StateFailed:
		state = m.theme.StatusError.Render("failed")
	default:
		state = m.theme.StatusReady.Render("ready")
	}

	parts := []string{state}
	if m.modelsLoaded {
		if m.models.Available() {
			parts = append(parts, m.theme.StatusReady.Render(fmt.Sprintf("%d models", len(m.models.Models))))
		} else {
			parts = append(parts, m.theme.StatusError.Render("models unavailable"))
		}
	}

	if m.notice != "" {
		style := m.theme.StatusBar
		if m.noticeErr {
			style = m.theme.StatusError
		}
		parts = append(parts, style.Render(m.notice))
	} else {
		var hints []string
		for _, b := range m.keyMap.ShortHelp() {
			h := b.Help()
			hints = append(hints, m.theme.Shortcut(h.Key, h.Desc))
		}
		parts = append(parts, strings.Join(hints, "  "))
	}

	line := strings.Join(parts, "  |  ")
	return m.theme.StatusBar.Width(m.width).Render(clampWidth(line, m.width-2))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
