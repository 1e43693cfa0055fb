// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mimico-chat/internal/audio"
	"github.com/jeranaias/mimico-chat/internal/clipboard"
	"github.com/jeranaias/mimico-chat/internal/model"
)

func replyTurn(t *testing.T, h *harness, body string) string {
	t.Helper()
	h.svc.chatBodies = []string{body}
	require.NoError(t, h.ctrl.Send(context.Background(), Input{Text: "hi"}))
	id, ok := h.ctrl.LastAssistant()
	require.True(t, ok)
	return id
}

func TestPlay_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	id := replyTurn(t, h, sse(`{"content":"你好呀"}`, `{"done":true}`))

	require.NoError(t, h.ctrl.Play(context.Background(), id))
	require.NoError(t, h.ctrl.Play(context.Background(), id))

	assert.Equal(t, 1, h.svc.ttsCalls, "exactly one synthesis request")
	want := "http://svc/static/audio/tts/abc.mp3"
	assert.Equal(t, []string{want, want}, h.player.Played())

	turn, _ := h.tr.Get(id)
	assert.Equal(t, "/static/audio/tts/abc.mp3", turn.Actions.AudioURL)
}

func TestPlay_UsesPersistentCache(t *testing.T) {
	cache, err := audio.OpenCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	_, err = cache.Put("你好呀", "/static/audio/tts/cached.mp3")
	require.NoError(t, err)

	h := newHarness(t, func(o *Options) { o.Cache = cache })
	id := replyTurn(t, h, sse(`{"content":"你好呀"}`, `{"done":true}`))

	require.NoError(t, h.ctrl.Play(context.Background(), id))
	assert.Equal(t, 0, h.svc.ttsCalls)
	assert.Equal(t, []string{"http://svc/static/audio/tts/cached.mp3"}, h.player.Played())
}

func TestPlay_StoresInPersistentCache(t *testing.T) {
	cache, err := audio.OpenCache(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	h := newHarness(t, func(o *Options) { o.Cache = cache })
	id := replyTurn(t, h, sse(`{"content":"再见"}`, `{"done":true}`))
	require.NoError(t, h.ctrl.Play(context.Background(), id))

	url, hit, err := cache.Get("再见")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "/static/audio/tts/abc.mp3", url)
}

func TestPlay_OfflineTurnUsesOfflineAsset(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.AutoplayOffline = false })
	id := replyTurn(t, h, sse(`{"content":"人家也是需要睡觉的~"}`, `{"done":true}`))

	require.NoError(t, h.ctrl.Play(context.Background(), id))
	assert.Equal(t, 0, h.svc.ttsCalls)
	assert.Equal(t, []string{"http://svc/static/audio/system/offline.mp3"}, h.player.Played())
}

func TestPlay_Errors(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.ctrl.Play(context.Background(), "nope"), ErrTurnNotFound)

	userID := h.tr.CreateTurn(model.RoleUser, "hi", model.TurnOptions{})
	assert.ErrorIs(t, h.ctrl.Play(context.Background(), userID), ErrEmptyTurn)

	speechless := h.tr.CreateTurn(model.RoleAssistant, "（笑）", model.TurnOptions{})
	assert.ErrorIs(t, h.ctrl.Play(context.Background(), speechless), ErrEmptyTurn)
	assert.Equal(t, 0, h.svc.ttsCalls)

	noPlayer := newHarness(t, func(o *Options) { o.Player = nil })
	id := noPlayer.tr.CreateTurn(model.RoleAssistant, "hi", model.TurnOptions{})
	assert.ErrorIs(t, noPlayer.ctrl.Play(context.Background(), id), audio.ErrNoPlayer)
}

func TestCopy(t *testing.T) {
	h := newHarness(t)
	id := replyTurn(t, h, sse(`{"content":"é emoji 🎉"}`, `{"done":true}`))

	method, err := h.ctrl.Copy(id)
	require.NoError(t, err)
	assert.Equal(t, clipboard.MethodSystem, method)
	assert.Equal(t, []string{"é emoji 🎉"}, h.copier.copied)

	img := h.tr.CreateTurn(model.RoleAssistant, "", model.TurnOptions{ImageURL: "/static/x.png"})
	_, err = h.ctrl.Copy(img)
	require.NoError(t, err)
	assert.Equal(t, "http://svc/static/x.png", h.copier.copied[1])

	_, err = h.ctrl.Copy("missing")
	assert.ErrorIs(t, err, ErrTurnNotFound)
}

func TestLastAssistant(t *testing.T) {
	h := newHarness(t)
	_, ok := h.ctrl.LastAssistant()
	assert.False(t, ok, "placeholder has no actions")

	id := h.tr.CreateTurn(model.RoleAssistant, "a", model.TurnOptions{})
	h.tr.CreateTurn(model.RoleUser, "b", model.TurnOptions{})
	got, ok := h.ctrl.LastAssistant()
	assert.True(t, ok)
	assert.Equal(t, id, got)
}
