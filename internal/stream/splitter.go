// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// SPLITTER
// =============================================================================

// decodeBufSize is the scratch size for one decoder pass. Invalid bytes expand
// to a three byte U+FFFD, so the loop below handles ErrShortDst.
const decodeBufSize = 4096

// Splitter turns raw chunks into complete text lines.
//
// UTF-8 decoding is incremental: an incomplete multibyte sequence at the end
// of a chunk is carried into the next call instead of being replaced. The
// text after the last newline is held back until more bytes arrive.
//
// A Splitter is not safe for concurrent use.
type Splitter struct {
	dec     transform.Transformer
	carry   []byte
	pending strings.Builder
	scratch []byte
}

// NewSplitter creates a Splitter with an empty buffer.
func NewSplitter() *Splitter {
	return &Splitter{
		dec:     unicode.UTF8.NewDecoder(),
		scratch: make([]byte, decodeBufSize),
	}
}

// Feed decodes chunk and returns every line completed by it, without the
// trailing newline. The returned slice is empty when no newline arrived.
func (s *Splitter) Feed(chunk []byte) []string {
	s.decode(chunk, false)
	return s.drainLines()
}

// Close flushes the decoder and discards any unterminated fragment.
// It returns the lines completed by the flush, which is always none unless
// the carried bytes themselves ended a line.
func (s *Splitter) Close() []string {
	s.decode(nil, true)
	lines := s.drainLines()
	s.pending.Reset()
	return lines
}

// Pending returns the buffered fragment that has not seen a newline yet.
func (s *Splitter) Pending() string {
	return s.pending.String()
}

func (s *Splitter) decode(chunk []byte, atEOF bool) {
	src := chunk
	if len(s.carry) > 0 {
		src = append(s.carry, chunk...)
		s.carry = nil
	}

	for len(src) > 0 {
		nDst, nSrc, err := s.dec.Transform(s.scratch, src, atEOF)
		s.pending.Write(s.scratch[:nDst])
		src = src[nSrc:]

		switch {
		case err == nil:
			return
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			s.carry = append([]byte(nil), src...)
			return
		default:
			// The UTF-8 decoder replaces bad input rather than failing, so
			// this only guards against a stuck transformer.
			s.pending.WriteString("�")
			return
		}
	}
}

func (s *Splitter) drainLines() []string {
	buf := s.pending.String()
	idx := strings.LastIndexByte(buf, '\n')
	if idx < 0 {
		return nil
	}

	lines := strings.Split(buf[:idx], "\n")
	rest := buf[idx+1:]
	s.pending.Reset()
	s.pending.WriteString(rest)
	return lines
}
