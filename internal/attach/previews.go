// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/playground-tui/internal/model"
)

const previewScheme = "preview://"

// =============================================================================
// PREVIEW REGISTRY
// =============================================================================

// Preview is what a renderer gets back for a reference.
type Preview struct {
	Name      string
	MediaType string
	Width     int
	Height    int
}

// Previews hands out revocable references to image previews.
// Safe for concurrent use.
type Previews struct {
	mu      sync.Mutex
	live    map[model.PreviewRef]Preview
	created int
}

// NewPreviews creates an empty registry.
func NewPreviews() *Previews {
	return &Previews{live: make(map[model.PreviewRef]Preview)}
}

// Create returns a new reference for f, or "" if f is not a decodable image.
func (p *Previews) Create(f File) model.PreviewRef {
	if !f.IsImage() {
		return ""
	}
	cfg, ok := imageConfig(f.Data)
	if !ok {
		return ""
	}

	ref := model.PreviewRef(previewScheme + uuid.NewString())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.live[ref] = Preview{Name: f.Name, MediaType: f.MediaType, Width: cfg.Width, Height: cfg.Height}
	p.created++
	return ref
}

// Resolve returns the preview behind ref while it is live.
func (p *Previews) Resolve(ref model.PreviewRef) (Preview, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pv, ok := p.live[ref]
	return pv, ok
}

// Release revokes ref. It returns true only the first time a live ref is
// released; releasing twice, or releasing "", is a no-op.
func (p *Previews) Release(ref model.PreviewRef) bool {
	if ref == "" || !strings.HasPrefix(string(ref), previewScheme) {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.live[ref]; !ok {
		return false
	}
	delete(p.live, ref)
	return true
}

// ReleaseAll revokes every live ref and returns how many were released.
func (p *Previews) ReleaseAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.live)
	p.live = make(map[model.PreviewRef]Preview)
	return n
}

// Live returns the number of unreleased refs.
func (p *Previews) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}

// Created returns how many refs were ever handed out.
func (p *Previews) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}
