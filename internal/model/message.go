// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the chat transcript and the
// model context history.
package model

import (
	"strings"
	"time"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a display message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Assistant"
	default:
		return string(s)
	}
}

// PreviewRef is an opaque handle to a revocable attachment preview.
// It is only meaningful to the registry that created it.
type PreviewRef string

// =============================================================================
// DISPLAY MESSAGE
// =============================================================================

// DisplayMessage is one entry of the transcript.
type DisplayMessage struct {
	Sender    Sender       `json:"sender"`
	Text      string       `json:"text"`
	Images    []PreviewRef `json:"images,omitempty"`
	Timestamp time.Time    `json:"timestamp"`

	// Open is true while a bot entry is still receiving fragments.
	Open bool `json:"-"`

	// Failed marks a bot entry whose turn ended in an error.
	Failed bool `json:"failed,omitempty"`

	// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
	stream *strings.Builder
}

// NewUserMessage creates a finished user entry. The image list is frozen.
func NewUserMessage(text string, images []PreviewRef) DisplayMessage {
	var frozen []PreviewRef
	if len(images) > 0 {
		frozen = make([]PreviewRef, len(images))
		copy(frozen, images)
	}
	return DisplayMessage{
		Sender:    SenderUser,
		Text:      text,
		Images:    frozen,
		Timestamp: time.Now(),
	}
}

// NewBotPlaceholder creates the empty, open bot entry that a turn streams into.
func NewBotPlaceholder() DisplayMessage {
	return DisplayMessage{
		Sender:    SenderBot,
		Timestamp: time.Now(),
		Open:      true,
		stream:    &strings.Builder{},
	}
}

// IsBot reports whether the entry was produced by the model.
func (m DisplayMessage) IsBot() bool {
	return m.Sender == SenderBot
}

// Content returns the current text, including fragments not yet finalized.
func (m DisplayMessage) Content() string {
	if m.Open && m.stream != nil {
		return m.stream.String()
	}
	return m.Text
}

// snapshot returns a copy safe to hand to readers.
func (m DisplayMessage) snapshot() DisplayMessage {
	out := m
	out.Text = m.Content()
	out.stream = nil
	if len(m.Images) > 0 {
		out.Images = make([]PreviewRef, len(m.Images))
		copy(out.Images, m.Images)
	}
	return out
}
