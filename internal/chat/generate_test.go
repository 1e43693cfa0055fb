// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/model"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in     string
		want   Command
		wantOK bool
	}{
		{"/image 一只猫", Command{Kind: api.GenerateImage, Prompt: "一只猫"}, true},
		{"/video  海边日落 ", Command{Kind: api.GenerateVideo, Prompt: "海边日落"}, true},
		{"/image", Command{Kind: api.GenerateImage}, true},
		{"/images cat", Command{}, false},
		{"hello /image cat", Command{}, false},
		{"", Command{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseCommand(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, %v, want %+v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestFollowUpText(t *testing.T) {
	tests := []struct {
		cmd  Command
		want string
	}{
		{Command{Kind: api.GenerateImage, Prompt: "猫"}, "/image 猫 [已成功生成]"},
		{Command{Kind: api.GenerateVideo, Prompt: "猫 [已成功生成]"}, "/video 猫 [已成功生成]"},
	}
	for _, tt := range tests {
		if got := followUpText(tt.cmd); got != tt.want {
			t.Errorf("followUpText(%+v) = %q, want %q", tt.cmd, got, tt.want)
		}
	}
}

func TestGenerate_ImageSuccessSendsHiddenFollowUp(t *testing.T) {
	h := newHarness(t)
	h.svc.genResult = &api.GenerateResult{Success: true, ImageURL: "/static/gen/cat.png"}
	h.svc.chatBodies = []string{sse(`{"content":"画好啦"}`, `{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "/image 一只猫"}))

	require.Len(t, h.svc.genReqs, 1)
	assert.Equal(t, api.GenerateImage, h.svc.genReqs[0].Kind)
	assert.Equal(t, "一只猫", h.svc.genReqs[0].Prompt)
	assert.Equal(t, "session_test", h.svc.genReqs[0].SessionID)

	turns := h.visible()
	require.Len(t, turns, 3, "no user turn for the follow-up")
	assert.Equal(t, "/image 一只猫", turns[0].Text)
	assert.Equal(t, model.KindImage, turns[1].Kind)
	assert.Equal(t, "/static/gen/cat.png", turns[1].AttachmentURL)
	assert.False(t, turns[1].Transient)
	assert.Equal(t, "画好啦", turns[2].Text)

	reqs := h.svc.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/image 一只猫 [已成功生成]", reqs[0].Message)
	assert.Contains(t, h.sleeps.Waits(), 500*time.Millisecond)
	assert.False(t, h.ctrl.InFlight())
}

func TestGenerate_VideoWithoutURL(t *testing.T) {
	h := newHarness(t)
	h.svc.genResult = &api.GenerateResult{Success: true}
	h.svc.chatBodies = []string{sse(`{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "/video 海浪"}))

	turns := h.visible()
	assert.Equal(t, textGenNoResult, turns[1].Text)
	assert.True(t, turns[1].Finalized)
}

func TestGenerate_Failure(t *testing.T) {
	h := newHarness(t)
	h.svc.genErr = &api.ClientError{Type: api.ErrTypeRejected, Message: "额度不足"}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "/image 猫"}))

	turns := h.visible()
	require.Len(t, turns, 2)
	assert.Equal(t, "生成失败：额度不足", turns[1].Text)
	assert.False(t, turns[1].Transient)
	assert.Empty(t, h.svc.requests(), "no follow-up after a failure")
}

func TestGenerate_Unauthorized(t *testing.T) {
	h := newHarness(t)
	h.svc.genErr = &api.ClientError{Type: api.ErrTypeUnauthorized, StatusCode: 401}

	err := h.ctrl.Send(context.Background(), Input{Text: "/video 猫"})
	assert.ErrorIs(t, err, ErrLoginRequired)
	assert.Equal(t, textGenNeedsLogin, h.visible()[1].Text)
}

func TestGenerate_BarePromptShowsUsage(t *testing.T) {
	h := newHarness(t)

	err := h.ctrl.Send(context.Background(), Input{Text: "/image"})
	var usage *UsageError
	require.True(t, errors.As(err, &usage))
	assert.Equal(t, "请输入提示词，例如：/image 一只可爱的小猫", usage.Error())
	assert.True(t, h.tr.IsPristine())
	assert.Empty(t, h.svc.genReqs)
}

func TestGenerate_MarkerSkipsCommandHandling(t *testing.T) {
	h := newHarness(t)
	h.svc.chatBodies = []string{sse(`{"content":"ok"}`, `{"done":true}`)}

	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "/image 猫 [已成功生成]"}))

	assert.Empty(t, h.svc.genReqs)
	turns := h.visible()
	require.Len(t, turns, 1)
	assert.Equal(t, model.RoleAssistant, turns[0].Role)
}
