// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package clipboard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// HELPERS
// =============================================================================

type memoryBackend struct {
	text string
	err  error
}

func (m *memoryBackend) WriteAll(text string) error {
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

// decodeOSC52 extracts the payload from ESC ] 52 ; c ; <base64> BEL.
func decodeOSC52(t *testing.T, seq string) string {
	t.Helper()
	const prefix = "\x1b]52;c;"
	require.True(t, strings.HasPrefix(seq, prefix), "sequence %q", seq)
	require.True(t, strings.HasSuffix(seq, "\x07"), "sequence %q", seq)
	payload := strings.TrimSuffix(strings.TrimPrefix(seq, prefix), "\x07")
	data, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	return string(data)
}

func newCopier(system Backend, term *bytes.Buffer) *Copier {
	c := New(system, term)
	c.env = func(string) string { return "" }
	return c
}

var roundTrip = []string{
	"hello",
	"é emoji 🎉",
	"人家也是需要睡觉的~",
	"line one\nline two\ttabbed",
	"",
}

// =============================================================================
// COPY TESTS
// =============================================================================

func TestCopy_SystemRoundTrip(t *testing.T) {
	for _, text := range roundTrip {
		mem := &memoryBackend{}
		var term bytes.Buffer

		method, err := newCopier(mem, &term).Copy(text)
		require.NoError(t, err)
		assert.Equal(t, MethodSystem, method)
		assert.Equal(t, text, mem.text)
		assert.Zero(t, term.Len(), "system path must not touch the terminal")
	}
}

func TestCopy_OSC52RoundTrip(t *testing.T) {
	for _, text := range roundTrip {
		var term bytes.Buffer

		method, err := newCopier(&memoryBackend{err: ErrUnsupported}, &term).Copy(text)
		require.NoError(t, err)
		assert.Equal(t, MethodOSC52, method)
		assert.Equal(t, text, decodeOSC52(t, term.String()))
	}
}

func TestCopy_NoSystemBackend(t *testing.T) {
	var term bytes.Buffer
	method, err := newCopier(nil, &term).Copy("x")
	require.NoError(t, err)
	assert.Equal(t, MethodOSC52, method)
}

func TestCopy_BothPathsFail(t *testing.T) {
	c := New(&memoryBackend{err: errors.New("xclip missing")}, nil)
	_, err := c.Copy("x")
	assert.Error(t, err)
}

func TestSequence_Tmux(t *testing.T) {
	c := New(nil, nil)
	c.env = func(k string) string {
		if k == "TMUX" {
			return "/tmp/tmux-1000/default,1,0"
		}
		return ""
	}
	seq := c.Sequence("x").String()
	assert.True(t, strings.HasPrefix(seq, "\x1bPtmux;"), "got %q", seq)
}
