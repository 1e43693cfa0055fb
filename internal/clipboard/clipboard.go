// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package clipboard copies reply text to the user's clipboard.
//
// The system clipboard is tried first. When it is unavailable, as over SSH
// or on a headless box, the text is sent to the terminal as an OSC 52
// escape sequence, which most modern terminals forward to the local
// clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/aymanbagabas/go-osc52/v2"
)

// =============================================================================
// TYPES
// =============================================================================

// Method names the path that completed a copy.
type Method string

const (
	MethodSystem Method = "system"
	MethodOSC52  Method = "osc52"
)

// ErrUnsupported is returned by the system backend on platforms without a
// clipboard utility.
var ErrUnsupported = errors.New("system clipboard unsupported")

// Backend writes text to a clipboard.
type Backend interface {
	WriteAll(text string) error
}

// SystemBackend uses the platform clipboard (pbcopy, xclip, wl-copy, ...).
type SystemBackend struct{}

// WriteAll implements Backend.
func (SystemBackend) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// =============================================================================
// COPIER
// =============================================================================

// Copier tries the system clipboard, then OSC 52.
type Copier struct {
	system   Backend
	terminal io.Writer
	env      func(string) string
}

// New returns a Copier writing escape sequences to terminal.
// A nil system backend skips straight to OSC 52.
func New(system Backend, terminal io.Writer) *Copier {
	return &Copier{system: system, terminal: terminal, env: os.Getenv}
}

// Default returns a Copier for the real system clipboard and stdout.
func Default() *Copier {
	return New(SystemBackend{}, os.Stdout)
}

// Copy places text on the clipboard and reports which path succeeded.
func (c *Copier) Copy(text string) (Method, error) {
	var sysErr error
	if c.system != nil {
		if sysErr = c.system.WriteAll(text); sysErr == nil {
			return MethodSystem, nil
		}
	}

	if c.terminal == nil {
		if sysErr == nil {
			sysErr = ErrUnsupported
		}
		return "", fmt.Errorf("copy failed: %w", sysErr)
	}
	if _, err := c.Sequence(text).WriteTo(c.terminal); err != nil {
		return "", fmt.Errorf("copy failed: %w", errors.Join(sysErr, err))
	}
	return MethodOSC52, nil
}

// Sequence builds the OSC 52 sequence for text, wrapped for tmux or screen
// when running inside one.
func (c *Copier) Sequence(text string) osc52.Sequence {
	seq := osc52.New(text)
	switch {
	case c.env("TMUX") != "":
		seq = seq.Tmux()
	case strings.HasPrefix(c.env("TERM"), "screen"):
		seq = seq.Screen()
	}
	return seq
}
