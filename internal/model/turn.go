// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Label returns the avatar label shown next to a turn.
func (r Role) Label() string {
	switch r {
	case RoleUser:
		return "我"
	case RoleAssistant:
		return "AI"
	default:
		return string(r)
	}
}

// Visible reports whether turns with this role belong in the transcript.
func (r Role) Visible() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind is the content type of a turn.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"

	// KindHint is the skills panel shown after a reset.
	KindHint Kind = "hint"

	// KindPlaceholder is the "waiting for input" greeting.
	KindPlaceholder Kind = "placeholder"
)

// IsAttachment reports whether the kind carries a media URL.
func (k Kind) IsAttachment() bool {
	return k == KindImage || k == KindVideo
}

// =============================================================================
// FIXED TEXT
// =============================================================================

const (
	// PlaceholderText is the greeting seeded into an empty transcript.
	PlaceholderText = "期待你的输入ing..."

	// OfflineText is the reply the service sends when the model is offline.
	OfflineText = "人家也是需要睡觉的~"

	// HintText is the body of the skills panel.
	HintText = "小技巧：直接发图片给我看；输入 /image 描述 生成图片，/video 描述 生成视频。"
)

// =============================================================================
// TURN TYPE
// =============================================================================

// ActionGroup is the play/copy control set attached to an assistant turn.
type ActionGroup struct {
	ID string `json:"id"`

	// AudioURL is the synthesized speech for the turn. Written once.
	AudioURL string `json:"audio_url,omitempty"`

	// Offline makes play use the local offline asset.
	Offline bool `json:"offline,omitempty"`
}

// Turn is one entry in the visible conversation.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`

	// Text is the accumulated body. For attachment turns it is optional.
	Text          string `json:"text,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`

	// Loading shows the waiting indicator until the first fragment.
	Loading bool `json:"-"`

	// Transient marks Text as a temporary notice that the next append replaces.
	Transient bool `json:"-"`

	// Finalized turns accept no further text.
	Finalized bool `json:"finalized"`

	Offline bool         `json:"offline,omitempty"`
	Actions *ActionGroup `json:"actions,omitempty"`
}

// clone returns a copy that shares nothing mutable with t.
func (t *Turn) clone() Turn {
	c := *t
	if t.Actions != nil {
		a := *t.Actions
		c.Actions = &a
	}
	return c
}

// HasContent reports whether the turn holds real, non-transient content.
func (t *Turn) HasContent() bool {
	if t.AttachmentURL != "" {
		return true
	}
	return t.Text != "" && !t.Transient
}

// wantsActions reports whether the turn qualifies for play/copy controls.
func (t *Turn) wantsActions() bool {
	if t.Role != RoleAssistant || t.Transient {
		return false
	}
	if t.Kind == KindHint || t.Kind == KindPlaceholder {
		return false
	}
	return strings.TrimSpace(t.Text) != ""
}

// ensureActions attaches the action group once.
func (t *Turn) ensureActions() {
	if t.Actions != nil || !t.wantsActions() {
		return
	}
	t.Actions = &ActionGroup{ID: "act_" + t.ID}
}

// IsOfflineText reports whether text is the offline sentinel.
func IsOfflineText(text string) bool {
	return strings.TrimSpace(text) == OfflineText
}

// NewTurnID returns a unique turn id of the form msg_<millis>_<suffix>.
func NewTurnID() string {
	return "msg_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + uuid.NewString()[:8]
}
