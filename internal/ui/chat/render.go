// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/playground-tui/internal/attach"
	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/ui/styles"
)

// =============================================================================
// TRANSCRIPT RENDERER
// =============================================================================

// transcriptRenderer turns transcript snapshots into viewport content.
// Finished entries never change, so their rendering is cached per width.
type transcriptRenderer struct {
	theme    *styles.Theme
	previews *attach.Previews
	markdown bool

	width    int
	glamour  *glamour.TermRenderer
	cache    map[int]cachedEntry
	disabled bool // glamour failed to initialize
}

type cachedEntry struct {
	text   string
	failed bool
	out    string
}

func newTranscriptRenderer(theme *styles.Theme, previews *attach.Previews, markdown bool) *transcriptRenderer {
	return &transcriptRenderer{
		theme:    theme,
		previews: previews,
		markdown: markdown,
		cache:    make(map[int]cachedEntry),
	}
}

// Render draws every entry. spin is shown in an open bot entry that has
// not received text yet.
func (r *transcriptRenderer) Render(msgs []model.DisplayMessage, width int, spin string) string {
	if width <= 0 {
		width = 80
	}
	if width != r.width {
		r.width = width
		r.glamour = nil
		r.cache = make(map[int]cachedEntry)
	}

	if len(msgs) == 0 {
		return r.theme.Muted.Render("  No messages yet. Type below and press enter.")
	}

	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.entry(i, msg, spin))
	}
	return b.String()
}

func (r *transcriptRenderer) entry(i int, msg model.DisplayMessage, spin string) string {
	if !msg.Open {
		if c, ok := r.cache[i]; ok && c.text == msg.Text && c.failed == msg.Failed {
			return c.out
		}
	}

	var b strings.Builder
	b.WriteString(r.label(msg))
	b.WriteString("\n")

	switch {
	case msg.Open && msg.Text == "":
		b.WriteString(r.theme.Body.Render(spin + " thinking..."))
	case msg.Open:
		b.WriteString(r.theme.Body.Width(r.width).Render(msg.Text))
	case msg.Failed:
		b.WriteString(r.theme.Failed.Width(r.width - 4).Render(msg.Text))
	case msg.IsBot():
		b.WriteString(r.markdownBody(msg.Text))
	default:
		if msg.Text != "" {
			b.WriteString(r.theme.Body.Width(r.width).Render(msg.Text))
		}
		for _, ref := range msg.Images {
			b.WriteString("\n")
			b.WriteString(r.image(ref))
		}
	}

	out := b.String()
	if !msg.Open {
		r.cache[i] = cachedEntry{text: msg.Text, failed: msg.Failed, out: out}
	}
	return out
}

func (r *transcriptRenderer) label(msg model.DisplayMessage) string {
	style := r.theme.UserLabel
	if msg.IsBot() {
		style = r.theme.BotLabel
	}
	ts := r.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	return style.Render(msg.Sender.DisplayName()) + " " + ts
}

// image renders a preview placeholder. Terminals cannot draw the picture
// itself, so the name and dimensions stand in for it.
func (r *transcriptRenderer) image(ref model.PreviewRef) string {
	pv, ok := r.previews.Resolve(ref)
	if !ok {
		return r.theme.Image.Render("[image released]")
	}
	return r.theme.Image.Render(fmt.Sprintf("[image %s %dx%d]", pv.Name, pv.Width, pv.Height))
}

func (r *transcriptRenderer) markdownBody(text string) string {
	plain := r.theme.Body.Width(r.width).Render(text)
	if !r.markdown || r.disabled {
		return plain
	}
	if r.glamour == nil {
		wrap := r.width - 4
		if wrap < 20 {
			wrap = 20
		}
		gr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(r.theme.GlamourStyle()),
			glamour.WithWordWrap(wrap),
			glamour.WithColorProfile(r.theme.ColorProfile),
		)
		if err != nil {
			r.disabled = true
			return plain
		}
		r.glamour = gr
	}
	out, err := r.glamour.Render(text)
	if err != nil {
		return plain
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// LAYOUT CONSTANTS
// =============================================================================

const (
	headerHeight      = 1
	statusHeight      = 1
	inputChrome       = 1 // top border of the input box
	attachmentsHeight = 1
)

// clampWidth returns s truncated to width cells per line.
func clampWidth(s string, width int) string {
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
