// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/clipboard"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Service is the subset of the chat service the controller talks to.
// *api.Client implements it.
type Service interface {
	AuthStatus(ctx context.Context) (*api.AuthStatus, error)
	Chat(ctx context.Context, req api.ChatRequest) (io.ReadCloser, error)
	UploadImage(ctx context.Context, name string, image io.Reader) (*api.UploadResult, error)
	History(ctx context.Context, sessionID string) ([]api.HistoryEntry, error)
	Clear(ctx context.Context, sessionID string) error
	TTS(ctx context.Context, text, messageID string) (string, error)
	Generate(ctx context.Context, req api.GenerateRequest) (*api.GenerateResult, error)
	ResolveURL(ref string) string
}

var _ Service = (*api.Client)(nil)

// Copier writes text to a clipboard. *clipboard.Copier implements it.
type Copier interface {
	Copy(text string) (clipboard.Method, error)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInFlight is returned when a send is already running. Nothing changed.
	ErrInFlight = errors.New("a message is already being sent")

	// ErrLoginRequired is returned when the session cookie is missing or
	// expired. Show LoginPrompt.
	ErrLoginRequired = errors.New("login required")

	// ErrTurnNotFound is returned by Play and Copy for an unknown turn.
	ErrTurnNotFound = errors.New("turn not found")

	// ErrEmptyTurn is returned by Play and Copy for a turn with nothing to use.
	ErrEmptyTurn = errors.New("turn has no content")
)

// =============================================================================
// FIXED TEXT
// =============================================================================

const (
	// LoginPrompt is shown whenever an action needs a login.
	LoginPrompt = "登录了吗，就想榨干我的Token(￣へ￣)"

	// GeneratedMarker tags the automatic follow-up after a generation.
	// Messages carrying it skip command handling and show no user turn.
	GeneratedMarker = "[已成功生成]"

	textRecognizing   = "[检测到图片，给我点时间，让我看看]"
	textResponseOK    = "响应成功!"
	textSendFailed    = "抱歉，发生了错误。请稍后重试。"
	textUploadFailed  = "抱歉，图片处理失败。请稍后重试。"
	textImageOnly     = "[图片]"
	textGenNoResult   = "生成成功，但无法显示结果"
	textGenFailed     = "生成失败："
	textGenNeedsLogin = "生成失败：请先登录"
)
