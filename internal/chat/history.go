// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/model"
)

// =============================================================================
// HISTORY
// =============================================================================

// LoadHistory replaces the transcript with the session's server history.
//
// System and tool entries are skipped. An entry with an image or video URL
// becomes an attachment turn that keeps its text; cached audio URLs are
// preset so play does not synthesize again. An empty history leaves a
// fresh transcript untouched apart from the reset panel.
func (c *Controller) LoadHistory(ctx context.Context) error {
	entries, err := c.svc.History(ctx, c.sess.SessionID())
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	turns := TurnsFromHistory(entries)
	if len(turns) > 0 {
		c.tr.Replace(turns)
	} else if c.tr.IsPristine() {
		c.tr.ResetAll()
	}
	c.log.Debug().Int("entries", len(entries)).Int("turns", len(turns)).Msg("history loaded")
	return nil
}

// TurnsFromHistory converts server history into transcript turns.
func TurnsFromHistory(entries []api.HistoryEntry) []model.Turn {
	turns := make([]model.Turn, 0, len(entries))
	for _, e := range entries {
		role := model.Role(e.Role)
		if !role.Visible() {
			continue
		}

		turn := model.Turn{
			Role: role,
			Kind: model.KindText,
			Text: e.Content,
		}
		switch {
		case e.ImageURL != "":
			turn.Kind = model.KindImage
			turn.AttachmentURL = e.ImageURL
		case e.VideoURL != "":
			turn.Kind = model.KindVideo
			turn.AttachmentURL = e.VideoURL
		}

		if role == model.RoleAssistant && e.Content != "" {
			turn.Actions = &model.ActionGroup{AudioURL: e.AudioURL}
			if model.IsOfflineText(e.Content) {
				turn.Offline = true
				turn.Actions.Offline = true
			}
		}
		turns = append(turns, turn)
	}
	return turns
}

// ClearHistory deletes the session's server history and resets the
// transcript.
func (c *Controller) ClearHistory(ctx context.Context) error {
	if err := c.checkAuth(ctx); err != nil {
		return err
	}
	if err := c.svc.Clear(ctx, c.sess.SessionID()); err != nil {
		if api.IsUnauthorized(err) {
			return ErrLoginRequired
		}
		return fmt.Errorf("clear history: %w", err)
	}
	c.tr.ResetAll()
	return nil
}

// SwitchMode clears the current session on the server, starts a new one in
// mode and resets the transcript. It refuses while a send is running.
func (c *Controller) SwitchMode(ctx context.Context, mode string) error {
	if !c.sess.TryBeginSend() {
		return ErrInFlight
	}
	defer c.sess.EndSend()

	if err := c.svc.Clear(ctx, c.sess.SessionID()); err != nil {
		if api.IsUnauthorized(err) {
			return ErrLoginRequired
		}
		// The old session is abandoned either way.
		c.log.Warn().Err(err).Msg("clear before mode switch failed")
	}
	old := c.sess.Renew(mode)
	c.log.Info().Str("from", old).Str("to", c.sess.SessionID()).Str("mode", c.sess.Mode()).Msg("session renewed")
	c.tr.ResetAll()
	return nil
}
