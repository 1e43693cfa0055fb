// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mimico-chat/internal/ui/styles"
	"github.com/jeranaias/mimico-chat/internal/util"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the chat screen.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.theme.Muted.Render("正在初始化…")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.viewport.View(),
		m.inputView(),
		m.footerView(),
	)
}

func (m *Model) headerView() string {
	t := m.theme
	sess := m.ctrl.Session()
	title := t.HeaderTitle.Render("mimico")
	sub := t.HeaderSubtitle.Render(sess.Mode() + " · " + sess.SessionID())
	if t.GetLayoutMode() == styles.LayoutNarrow {
		sub = t.HeaderSubtitle.Render(sess.Mode())
	}
	return t.Header.Width(max(t.Width, 1)).Render(title + "  " + sub)
}

func (m *Model) inputView() string {
	return m.theme.InputContainer.Width(max(m.theme.Width-2, 1)).Render(m.input.View())
}

func (m *Model) footerView() string {
	t := m.theme
	if m.help.ShowAll {
		return m.help.View(m.keys)
	}
	if m.status != "" {
		width := max(t.Width-2, 10)
		text := util.TruncateWidth(m.status, width)
		if m.statusErr {
			return t.Error.Render(styles.StatusIndicators.Error + " " + text)
		}
		return t.Success.Render(text)
	}
	return m.help.View(m.keys)
}
