// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// =============================================================================
// PLAYER
// =============================================================================

// ErrNoPlayer is returned when no player command is configured or found.
var ErrNoPlayer = errors.New("no audio player available")

// DefaultPlayerCommand plays a file or URL without a window and exits.
const DefaultPlayerCommand = "ffplay -nodisp -autoexit -loglevel quiet"

// Player plays a single audio source to completion.
type Player interface {
	Play(ctx context.Context, source string) error
}

// CommandPlayer runs an external program with the source as last argument.
type CommandPlayer struct {
	name string
	args []string
}

// NewCommandPlayer parses a whitespace-separated command line.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoPlayer
	}
	return &CommandPlayer{name: fields[0], args: fields[1:]}, nil
}

// Available reports whether the program is on PATH.
func (p *CommandPlayer) Available() bool {
	_, err := exec.LookPath(p.name)
	return err == nil
}

// Play runs the player and waits for it to exit.
func (p *CommandPlayer) Play(ctx context.Context, source string) error {
	if source == "" {
		return errors.New("empty audio source")
	}
	args := append(append([]string(nil), p.args...), source)
	cmd := exec.CommandContext(ctx, p.name, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", p.name, err, msg)
		}
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

// Recorder is a Player that remembers what it was asked to play.
type Recorder struct {
	mu      sync.Mutex
	sources []string
	Err     error
}

// Play records source and returns r.Err.
func (r *Recorder) Play(_ context.Context, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, source)
	return r.Err
}

// Played returns every source in call order.
func (r *Recorder) Played() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sources...)
}

// =============================================================================
// SOURCES
// =============================================================================

// Resolve turns a configured source into something a player can open.
// Existing local files are returned as is; anything else goes through
// resolveURL, which makes server-relative paths absolute.
func Resolve(source string, resolveURL func(string) string) string {
	if source == "" {
		return ""
	}
	if strings.HasPrefix(source, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			source = filepath.Join(home, source[2:])
		}
	}
	if _, err := os.Stat(source); err == nil {
		return source
	}
	if resolveURL == nil {
		return source
	}
	return resolveURL(source)
}
