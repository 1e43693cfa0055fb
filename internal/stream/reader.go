// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/jeranaias/mimico-chat/internal/util"
)

// =============================================================================
// READER
// =============================================================================

// DefaultChunkSize is the read size used by NewReader.
const DefaultChunkSize = 4096

// Reader pulls frames out of a streaming response body.
type Reader struct {
	src      io.Reader
	splitter *Splitter
	buf      []byte
	queue    []Frame
	log      zerolog.Logger
	err      error

	// Skipped counts data lines dropped for malformed JSON.
	Skipped int
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader, log zerolog.Logger) *Reader {
	return NewReaderSize(r, DefaultChunkSize, log)
}

// NewReaderSize creates a Reader that reads at most size bytes per call.
func NewReaderSize(r io.Reader, size int, log zerolog.Logger) *Reader {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Reader{
		src:      r,
		splitter: NewSplitter(),
		buf:      make([]byte, size),
		log:      log,
	}
}

// Next returns the next frame. It returns io.EOF once the body is exhausted,
// or the underlying read error if the transport failed. Either terminal error
// is returned again on every later call.
func (r *Reader) Next() (Frame, error) {
	for len(r.queue) == 0 {
		if r.err != nil {
			return Frame{}, r.err
		}
		r.fill()
	}
	f := r.queue[0]
	r.queue = r.queue[1:]
	return f, nil
}

// Each calls fn for every frame until the body ends. A clean end returns nil.
func (r *Reader) Each(fn func(Frame) error) error {
	for {
		f, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
	}
}

func (r *Reader) fill() {
	n, err := r.src.Read(r.buf)
	if n > 0 {
		r.enqueue(r.splitter.Feed(r.buf[:n]))
	}
	if err == nil {
		return
	}

	if errors.Is(err, io.EOF) {
		if rest := r.splitter.Pending(); rest != "" {
			r.log.Debug().Int("bytes", len(rest)).Msg("discarding partial line at end of stream")
		}
		r.enqueue(r.splitter.Close())
		r.err = io.EOF
		return
	}
	r.err = err
}

func (r *Reader) enqueue(lines []string) {
	for _, line := range lines {
		f, ok, err := ParseLine(line)
		if !ok {
			continue
		}
		if err != nil {
			r.Skipped++
			r.log.Warn().Err(err).Str("line", util.TruncateRunes(line, 120)).Msg("skipping malformed stream frame")
			continue
		}
		r.queue = append(r.queue, f)
	}
}
