// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attach stages user-selected files for the next send.
package attach

import (
	"bytes"
	"fmt"
	"image"
	// Register decoders used to validate image previews.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/playground-tui/internal/model"
)

// MaxFileSize caps a single attachment read from disk.
const MaxFileSize = 20 * 1024 * 1024

// DefaultMediaType is used when nothing better can be detected.
const DefaultMediaType = "application/octet-stream"

// =============================================================================
// FILE
// =============================================================================

// File is one staged attachment.
type File struct {
	Name      string
	MediaType string
	Data      []byte

	// Preview is empty unless the file decoded as an image.
	Preview model.PreviewRef
}

// NewFile builds a File from raw bytes, detecting its media type.
func NewFile(name string, data []byte) File {
	return File{
		Name:      filepath.Base(name),
		MediaType: DetectMediaType(name, data),
		Data:      data,
	}
}

// LoadFile reads path from disk.
func LoadFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("attachment %s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return File{}, fmt.Errorf("attachment %s is %d bytes, limit is %d", path, info.Size(), MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read attachment: %w", err)
	}
	return NewFile(path, data), nil
}

// IsImage reports whether the media type is an image type.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.MediaType, "image/")
}

// Size returns the payload length in bytes.
func (f File) Size() int {
	return len(f.Data)
}

// DetectMediaType sniffs data, falling back to the file extension.
func DetectMediaType(name string, data []byte) string {
	sniffed := http.DetectContentType(data)
	if sniffed != DefaultMediaType && !strings.HasPrefix(sniffed, "text/plain") {
		return stripParams(sniffed)
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return stripParams(byExt)
	}
	return stripParams(sniffed)
}

func stripParams(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		return strings.TrimSpace(mediaType[:i])
	}
	return mediaType
}

// imageConfig parses the image header. Files that fail simply get no preview.
func imageConfig(data []byte) (image.Config, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, false
	}
	return cfg, true
}
