// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const decodeBufSize = 4096

// =============================================================================
// UTF-8 DECODER
// =============================================================================

// Decoder turns arbitrarily split byte fragments into text. A multi-byte
// sequence cut by a fragment boundary is held back until the next call.
// Invalid bytes become U+FFFD and decoding continues.
type Decoder struct {
	t     transform.Transformer
	carry []byte
	dst   []byte
}

// NewDecoder creates a decoder with empty state.
func NewDecoder() *Decoder {
	return &Decoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, decodeBufSize),
	}
}

// Decode consumes p and returns every complete character it finishes.
func (d *Decoder) Decode(p []byte) string {
	return d.run(p, false)
}

// Flush returns whatever is still held back, with an incomplete trailing
// sequence replaced by U+FFFD, and resets the decoder.
func (d *Decoder) Flush() string {
	out := d.run(nil, true)
	d.t.Reset()
	d.carry = nil
	return out
}

// Pending returns the number of bytes held back.
func (d *Decoder) Pending() int {
	return len(d.carry)
}

func (d *Decoder) run(p []byte, atEOF bool) string {
	src := make([]byte, 0, len(d.carry)+len(p))
	src = append(src, d.carry...)
	src = append(src, p...)
	d.carry = nil

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			return out.String()
		case transform.ErrShortDst:
			if nDst == 0 && nSrc == 0 {
				d.dst = make([]byte, 2*len(d.dst))
			}
		case transform.ErrShortSrc:
			d.carry = append(d.carry, src...)
			return out.String()
		default:
			// Not produced by the UTF-8 decoder; skip one byte so we always progress
			out.WriteRune(0xFFFD)
			if len(src) == 0 {
				return out.String()
			}
			src = src[1:]
		}
	}
}
