// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attach

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// =============================================================================
// FILE TESTS
// =============================================================================

func TestDetectMediaType(t *testing.T) {
	tests := []struct {
		name string
		file string
		data []byte
		want string
	}{
		{"png by content", "x.bin", pngBytes(t, 2, 2), "image/png"},
		{"text by content", "notes", []byte("hello world"), "text/plain"},
		{"json by extension", "data.json", []byte(`{"a":1}`), "application/json"},
		{"unknown binary", "blob", []byte{0x00, 0x01, 0x02, 0x03}, "application/octet-stream"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectMediaType(tc.file, tc.data); got != tc.want {
				t.Errorf("DetectMediaType(%q) = %q, want %q", tc.file, got, tc.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 3, 3), 0o600))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "shot.png", f.Name)
	assert.Equal(t, "image/png", f.MediaType)
	assert.True(t, f.IsImage())

	_, err = LoadFile(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	_, err = LoadFile(dir)
	assert.Error(t, err)
}

// =============================================================================
// PREVIEW TESTS
// =============================================================================

func TestPreviews_CreateOnlyForImages(t *testing.T) {
	p := NewPreviews()

	ref := p.Create(NewFile("a.png", pngBytes(t, 4, 2)))
	require.NotEmpty(t, ref)
	assert.True(t, strings.HasPrefix(string(ref), "preview://"))

	pv, ok := p.Resolve(ref)
	require.True(t, ok)
	assert.Equal(t, 4, pv.Width)
	assert.Equal(t, 2, pv.Height)

	assert.Empty(t, p.Create(NewFile("notes.txt", []byte("plain text"))))

	// Claims to be an image but does not decode
	broken := File{Name: "broken.png", MediaType: "image/png", Data: []byte("nope")}
	assert.Empty(t, p.Create(broken))

	assert.Equal(t, 1, p.Live())
}

func TestPreviews_ReleaseExactlyOnce(t *testing.T) {
	p := NewPreviews()
	ref := p.Create(NewFile("a.png", pngBytes(t, 1, 1)))

	assert.True(t, p.Release(ref))
	assert.False(t, p.Release(ref))
	assert.False(t, p.Release(""))
	assert.Equal(t, 0, p.Live())

	_, ok := p.Resolve(ref)
	assert.False(t, ok)
}

// =============================================================================
// STAGER TESTS
// =============================================================================

func TestStager_RemoveReleasesAndKeepsOrder(t *testing.T) {
	p := NewPreviews()
	st := NewStager(p)

	st.Add(
		NewFile("a.png", pngBytes(t, 1, 1)),
		NewFile("b.txt", []byte("text")),
		NewFile("c.png", pngBytes(t, 1, 1)),
	)
	before := st.Files()
	require.Len(t, before, 3)
	assert.Equal(t, 2, p.Live())

	removed, err := st.Remove(0)
	require.NoError(t, err)
	assert.Equal(t, "a.png", removed.Name)
	assert.Equal(t, 1, p.Live())

	after := st.Files()
	require.Len(t, after, 2)
	assert.Equal(t, "b.txt", after[0].Name)
	assert.Equal(t, "c.png", after[1].Name)
	assert.Equal(t, before[2].Preview, after[1].Preview)

	_, ok := p.Resolve(before[0].Preview)
	assert.False(t, ok)
	_, ok = p.Resolve(before[2].Preview)
	assert.True(t, ok)

	_, err = st.Remove(5)
	assert.Error(t, err)
}

func TestStager_ReplaceReleasesPrevious(t *testing.T) {
	p := NewPreviews()
	st := NewStager(p)
	st.Add(NewFile("a.png", pngBytes(t, 1, 1)), NewFile("b.png", pngBytes(t, 1, 1)))
	old := st.Previews()

	st.Replace(NewFile("c.png", pngBytes(t, 1, 1)))
	assert.Equal(t, 1, p.Live())
	for _, ref := range old {
		_, ok := p.Resolve(ref)
		assert.False(t, ok, "old ref %s should be released", ref)
	}
	assert.Equal(t, 1, st.Len())
}

func TestStager_CommitTransfersOwnership(t *testing.T) {
	p := NewPreviews()
	st := NewStager(p)
	st.Paste(NewFile("a.png", pngBytes(t, 1, 1)), NewFile("b.txt", []byte("x")))

	files := st.Commit()
	require.Len(t, files, 2)
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, 1, p.Live(), "committed refs stay live")

	refs := PreviewRefs(files)
	require.Len(t, refs, 1)
	assert.True(t, p.Release(refs[0]))

	// Clearing an empty stager releases nothing
	st.Clear()
	assert.Equal(t, 0, p.Live())
}
