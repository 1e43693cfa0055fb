// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/model"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command is a parsed /image or /video request.
type Command struct {
	Kind   api.GenerateKind
	Prompt string
}

// UsageError is returned for a command without a prompt.
type UsageError struct {
	Kind api.GenerateKind
}

func (e *UsageError) Error() string {
	return "请输入提示词，例如：/" + string(e.Kind) + " 一只可爱的小猫"
}

// ParseCommand recognizes "/image <prompt>" and "/video <prompt>".
// A bare "/image" or "/video" is recognized with an empty prompt.
func ParseCommand(text string) (Command, bool) {
	for _, kind := range []api.GenerateKind{api.GenerateImage, api.GenerateVideo} {
		prefix := "/" + string(kind)
		if text == prefix {
			return Command{Kind: kind}, true
		}
		if strings.HasPrefix(text, prefix+" ") {
			return Command{Kind: kind, Prompt: strings.TrimSpace(text[len(prefix)+1:])}, true
		}
	}
	return Command{}, false
}

var markerPattern = regexp.MustCompile(`\s*\[已成功生成\]\s*`)

// followUpText is the hidden message that lets the assistant comment on a
// finished generation.
func followUpText(cmd Command) string {
	prompt := strings.TrimSpace(markerPattern.ReplaceAllString(cmd.Prompt, ""))
	return "/" + string(cmd.Kind) + " " + prompt + " " + GeneratedMarker
}

func progressText(kind api.GenerateKind) string {
	if kind == api.GenerateVideo {
		return "正在生成视频，请稍候..."
	}
	return "正在生成图片，请稍候..."
}

// =============================================================================
// GENERATION
// =============================================================================

// generate runs an image or video generation with the guard held. On
// success it returns the follow-up message Send issues afterwards.
func (c *Controller) generate(ctx context.Context, cmd Command) (string, error) {
	if cmd.Prompt == "" {
		return "", &UsageError{Kind: cmd.Kind}
	}

	c.tr.CreateTurn(model.RoleUser, "/"+string(cmd.Kind)+" "+cmd.Prompt, model.TurnOptions{})
	progress := c.tr.CreateTurn(model.RoleAssistant, progressText(cmd.Kind), model.TurnOptions{Transient: true})

	result, err := c.svc.Generate(ctx, api.GenerateRequest{
		Kind:      cmd.Kind,
		Prompt:    cmd.Prompt,
		SessionID: c.sess.SessionID(),
	})
	if err != nil {
		if api.IsUnauthorized(err) {
			c.replaceProgress(progress, textGenNeedsLogin)
			return "", ErrLoginRequired
		}
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			c.tr.Finalize(progress)
			return "", nil
		}
		c.log.Warn().Err(err).Str("kind", string(cmd.Kind)).Msg("generation failed")
		c.replaceProgress(progress, textGenFailed+api.ErrorMessage(err))
		return "", nil
	}

	kind := model.KindImage
	if cmd.Kind == api.GenerateVideo {
		kind = model.KindVideo
	}
	if !c.tr.Attach(progress, kind, result.URL(cmd.Kind)) {
		c.replaceProgress(progress, textGenNoResult)
	}
	return followUpText(cmd), nil
}

// replaceProgress swaps the progress notice for text and closes the turn.
func (c *Controller) replaceProgress(id, text string) {
	c.tr.AppendText(id, text)
	c.tr.Finalize(id)
}
