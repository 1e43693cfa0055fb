// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/ui/styles"
	"github.com/jeranaias/mimico-chat/internal/util"
)

// =============================================================================
// TRANSCRIPT RENDERER
// =============================================================================

// Renderer turns a model.ViewModel into terminal text.
//
// Finished assistant replies are rendered as markdown when enabled. The
// rendered output is cached per turn and only recomputed when the body or
// width changes, since glamour is far slower than the stream.
type Renderer struct {
	theme    *styles.Theme
	markdown bool

	// HideHint drops the usage hint shown after a reset.
	HideHint bool

	md      *glamour.TermRenderer
	mdWidth int
	cache   map[string]renderedBody
}

type renderedBody struct {
	source string
	out    string
}

// RenderState carries per-frame inputs that do not live in the transcript.
type RenderState struct {
	// Selected is the turn ID the action keys apply to.
	Selected string

	// Spinner is the current spinner frame for loading turns.
	Spinner string
}

// NewRenderer creates a renderer for theme.
func NewRenderer(theme *styles.Theme, markdown bool) *Renderer {
	return &Renderer{
		theme:    theme,
		markdown: markdown,
		cache:    make(map[string]renderedBody),
	}
}

// Render draws every visible turn, separated by blank lines.
func (r *Renderer) Render(vm model.ViewModel, st RenderState) string {
	width := r.theme.ContentWidth()
	blocks := make([]string, 0, len(vm.Turns))
	live := make(map[string]bool, len(vm.Turns))
	for _, tv := range vm.Turns {
		if r.HideHint && tv.Kind == model.KindHint {
			continue
		}
		live[tv.ID] = true
		blocks = append(blocks, r.renderTurn(tv, st, width))
	}
	for id := range r.cache {
		if !live[id] {
			delete(r.cache, id)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (r *Renderer) renderTurn(tv model.TurnView, st RenderState, width int) string {
	t := r.theme
	selected := tv.ID != "" && tv.ID == st.Selected

	switch tv.Kind {
	case model.KindHint:
		return t.Hint.Render(wrapped(tv.Body, width-4))
	case model.KindPlaceholder:
		return t.Placeholder.Render(tv.Body)
	}

	var b strings.Builder
	label := tv.Label
	if selected {
		label = t.Selected.Render("▸ ") + labelStyle(t, tv.Role).Render(label)
	} else {
		label = labelStyle(t, tv.Role).Render(label)
	}
	b.WriteString(label)
	b.WriteString("\n")

	body := r.body(tv, st, width)
	bodyStyle := t.AssistantBody
	if tv.Role == model.RoleUser {
		bodyStyle = t.UserBody
	}
	b.WriteString(bodyStyle.Render(body))

	if tv.Actions && !tv.Loading && !tv.Transient {
		b.WriteString("\n")
		b.WriteString(r.actions(tv, selected))
	}
	return b.String()
}

func (r *Renderer) body(tv model.TurnView, st RenderState, width int) string {
	t := r.theme
	if tv.Transient {
		return t.Transient.Render(wrapped(tv.Body, width))
	}
	if tv.Loading && tv.Body == "" && tv.Attachment == "" {
		return t.Transient.Render(st.Spinner)
	}

	var parts []string
	if tv.Attachment != "" {
		parts = append(parts, t.Attachment.Render(util.TruncateWidth(tv.Attachment, width)))
	}
	if tv.Body != "" {
		text := r.text(tv, width)
		if tv.Offline {
			text = t.Offline.Render(text)
		}
		parts = append(parts, text)
	}
	if tv.Loading {
		parts = append(parts, t.Transient.Render(st.Spinner))
	}
	return strings.Join(parts, "\n")
}

// text renders a turn body, as markdown for finished assistant replies.
func (r *Renderer) text(tv model.TurnView, width int) string {
	if !r.markdown || tv.Role != model.RoleAssistant || tv.Loading || tv.Offline {
		return wrapped(tv.Body, width)
	}
	if cached, ok := r.cache[tv.ID]; ok && cached.source == tv.Body && r.mdWidth == width {
		return cached.out
	}
	md := r.markdownRenderer(width)
	if md == nil {
		return wrapped(tv.Body, width)
	}
	out, err := md.Render(tv.Body)
	if err != nil {
		return wrapped(tv.Body, width)
	}
	out = strings.Trim(out, "\n")
	r.cache[tv.ID] = renderedBody{source: tv.Body, out: out}
	return out
}

func (r *Renderer) markdownRenderer(width int) *glamour.TermRenderer {
	if r.md != nil && r.mdWidth == width {
		return r.md
	}
	style := "dark"
	switch {
	case r.theme.Name == styles.ThemePlain:
		style = "notty"
	case !r.theme.IsDark:
		style = "light"
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	r.md = md
	r.mdWidth = width
	clear(r.cache)
	return md
}

func (r *Renderer) actions(tv model.TurnView, selected bool) string {
	t := r.theme
	audio := styles.StatusIndicators.Audio
	if tv.AudioCached {
		audio += " 已缓存"
	}
	if !selected {
		return t.Actions.Render(audio)
	}
	keys := t.StatusKey.Render("C-p") + t.Actions.Render(" 播放  ") +
		t.StatusKey.Render("C-y") + t.Actions.Render(" 复制")
	return lipgloss.JoinHorizontal(lipgloss.Top, t.Actions.Render(audio+"  "), keys)
}

func labelStyle(t *styles.Theme, role model.Role) lipgloss.Style {
	if role == model.RoleUser {
		return t.UserLabel
	}
	return t.AssistantLabel
}

func wrapped(s string, width int) string {
	return strings.Join(util.Wrap(s, width), "\n")
}
