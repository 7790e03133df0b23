// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"fmt"
	"sync"

	"github.com/jeranaias/playground-tui/internal/model"
)

// =============================================================================
// STAGER
// =============================================================================

// Stager holds the files selected for the next send.
type Stager struct {
	mu       sync.Mutex
	previews *Previews
	files    []File
}

// NewStager creates an empty stager backed by previews.
func NewStager(previews *Previews) *Stager {
	if previews == nil {
		previews = NewPreviews()
	}
	return &Stager{previews: previews}
}

// Registry returns the preview registry the stager allocates from.
func (s *Stager) Registry() *Previews {
	return s.previews
}

// Add stages files after the ones already staged.
func (s *Stager) Add(files ...File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range files {
		f.Preview = s.previews.Create(f)
		s.files = append(s.files, f)
	}
}

// Paste stages files taken from a clipboard paste. Pasted files are
// appended exactly like selected ones.
func (s *Stager) Paste(files ...File) {
	s.Add(files...)
}

// Replace releases the current staged set and stages files in its place.
func (s *Stager) Replace(files ...File) {
	s.Clear()
	s.Add(files...)
}

// Remove unstages the file at index i and releases its preview. The order
// of the remaining files is unchanged.
func (s *Stager) Remove(i int) (File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 || i >= len(s.files) {
		return File{}, fmt.Errorf("attachment index %d out of range (have %d)", i, len(s.files))
	}
	f := s.files[i]
	s.previews.Release(f.Preview)

	s.files = append(s.files[:i:i], s.files[i+1:]...)
	f.Preview = ""
	return f, nil
}

// Clear releases every staged preview and empties the stager.
func (s *Stager) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.files {
		s.previews.Release(f.Preview)
	}
	s.files = nil
}

// Commit empties the stager and returns what was staged. Preview refs are
// not released: ownership passes to the caller.
func (s *Stager) Commit() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.files
	s.files = nil
	return out
}

// Files returns a copy of the staged files.
func (s *Stager) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// Previews returns the staged preview refs in order, skipping files
// without one.
func (s *Stager) Previews() []model.PreviewRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	return previewRefs(s.files)
}

// Len returns the number of staged files.
func (s *Stager) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// PreviewRefs extracts the non-empty preview refs of files in order.
func PreviewRefs(files []File) []model.PreviewRef {
	return previewRefs(files)
}

func previewRefs(files []File) []model.PreviewRef {
	var refs []model.PreviewRef
	for _, f := range files {
		if f.Preview != "" {
			refs = append(refs, f.Preview)
		}
	}
	return refs
}
