// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/audio"
	"github.com/jeranaias/mimico-chat/internal/clipboard"
	"github.com/jeranaias/mimico-chat/internal/model"
)

// =============================================================================
// PLAY
// =============================================================================

// Play speaks a turn.
//
// Offline turns play the local offline asset. Otherwise the turn's cached
// audio is replayed, or synthesized once and cached on the turn and in the
// persistent cache. Repeated plays of a turn never synthesize twice.
func (c *Controller) Play(ctx context.Context, turnID string) error {
	turn, ok := c.tr.Get(turnID)
	if !ok {
		return ErrTurnNotFound
	}
	if c.player == nil {
		return audio.ErrNoPlayer
	}

	if turn.Offline || (turn.Actions != nil && turn.Actions.Offline) {
		if c.offline == "" {
			return ErrEmptyTurn
		}
		return c.player.Play(ctx, audio.Resolve(c.offline, c.svc.ResolveURL))
	}

	if turn.Actions == nil {
		return ErrEmptyTurn
	}

	url, err := c.audioURL(ctx, turnID)
	if err != nil {
		return err
	}
	return c.player.Play(ctx, c.svc.ResolveURL(url))
}

// audioURL returns the turn's speech URL, synthesizing it on first use.
func (c *Controller) audioURL(ctx context.Context, turnID string) (string, error) {
	c.playMu.Lock()
	defer c.playMu.Unlock()

	// Re-read under the lock; a concurrent play may have cached it.
	turn, ok := c.tr.Get(turnID)
	if !ok || turn.Actions == nil {
		return "", ErrTurnNotFound
	}
	if turn.Actions.AudioURL != "" {
		return turn.Actions.AudioURL, nil
	}
	if audio.Key(turn.Text) == "" {
		return "", ErrEmptyTurn
	}

	if c.cache != nil {
		url, hit, err := c.cache.Get(turn.Text)
		if err != nil {
			c.log.Warn().Err(err).Msg("tts cache lookup failed")
		} else if hit {
			return c.tr.SetAudioURL(turnID, url), nil
		}
	}

	url, err := c.svc.TTS(ctx, turn.Text, turnID)
	if err != nil {
		if api.IsUnauthorized(err) {
			return "", ErrLoginRequired
		}
		return "", fmt.Errorf("synthesize speech: %w", err)
	}

	if c.cache != nil {
		if cached, err := c.cache.Put(turn.Text, url); err != nil {
			c.log.Warn().Err(err).Msg("tts cache store failed")
		} else {
			url = cached
		}
	}
	return c.tr.SetAudioURL(turnID, url), nil
}

// =============================================================================
// COPY
// =============================================================================

// Copy puts a turn's full text on the clipboard. Attachment turns without
// text copy their media URL.
func (c *Controller) Copy(turnID string) (clipboard.Method, error) {
	turn, ok := c.tr.Get(turnID)
	if !ok {
		return "", ErrTurnNotFound
	}
	if c.copier == nil {
		return "", clipboard.ErrUnsupported
	}

	text := turn.Text
	if turn.Transient {
		text = ""
	}
	if text == "" && turn.Kind.IsAttachment() {
		text = c.svc.ResolveURL(turn.AttachmentURL)
	}
	if text == "" {
		return "", ErrEmptyTurn
	}
	return c.copier.Copy(text)
}

// LastAssistant returns the id of the newest assistant turn that has
// play and copy controls.
func (c *Controller) LastAssistant() (string, bool) {
	turns := c.tr.Snapshot()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == model.RoleAssistant && turns[i].Actions != nil {
			return turns[i].ID, true
		}
	}
	return "", false
}
