// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/audio"
	mchat "github.com/jeranaias/mimico-chat/internal/chat"
	"github.com/jeranaias/mimico-chat/internal/clipboard"
	"github.com/jeranaias/mimico-chat/internal/model"
)

// statusForError maps controller errors to status line text.
// Canceled work reports nothing.
func statusForError(err error) string {
	var usage *mchat.UsageError
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, mchat.ErrLoginRequired), errors.Is(err, api.ErrUnauthorized):
		return mchat.LoginPrompt
	case errors.As(err, &usage):
		return usage.Error()
	case errors.Is(err, mchat.ErrInFlight):
		return "正在回复中，请稍候"
	case errors.Is(err, audio.ErrNoPlayer):
		return "没有可用的音频播放器"
	case errors.Is(err, mchat.ErrEmptyTurn):
		return "这条消息没有可用的内容"
	case errors.Is(err, mchat.ErrTurnNotFound):
		return "请先选择一条回复"
	case errors.Is(err, clipboard.ErrUnsupported):
		return "剪贴板不可用"
	default:
		return api.ErrorMessage(err)
	}
}

func hasUserTurn(turns []model.Turn) bool {
	for _, t := range turns {
		if t.Role == model.RoleUser {
			return true
		}
	}
	return false
}

// actionable returns the ids of turns with play and copy controls, oldest
// first.
func actionable(vm model.ViewModel) []string {
	var ids []string
	for _, tv := range vm.Turns {
		if tv.Actions && !tv.Loading && !tv.Transient {
			ids = append(ids, tv.ID)
		}
	}
	return ids
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
