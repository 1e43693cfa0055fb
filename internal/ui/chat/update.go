// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	mchat "github.com/jeranaias/mimico-chat/internal/chat"
	"github.com/jeranaias/mimico-chat/internal/clipboard"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refresh()
		return m, nil

	case renderTickMsg:
		if m.throttle.Flush() {
			m.refresh()
		}
		return m, renderTickCmd(m.throttle.Interval())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.ctrl.InFlight() {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case sendDoneMsg:
		m.busy = false
		m.reportError(msg.Err)
		m.throttle.ForceFlush()
		m.refresh()
		if m.autoSave {
			return m, saveCmd(m.store, m.ctrl, false)
		}
		return m, nil

	case historyLoadedMsg:
		m.busy = false
		m.reportError(msg.Err)
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("history load failed")
		}
		m.selected = ""
		m.refresh()
		return m, nil

	case historyClearedMsg:
		m.busy = false
		if msg.Err == nil {
			m.setStatus("历史记录已清空", false)
			m.selected = ""
		} else {
			m.reportError(msg.Err)
		}
		m.refresh()
		return m, nil

	case modeSwitchedMsg:
		m.busy = false
		if msg.Err == nil {
			m.setStatus("已切换到 "+msg.Mode+" 模式", false)
			m.selected = ""
		} else {
			m.reportError(msg.Err)
		}
		m.refresh()
		return m, nil

	case playDoneMsg:
		m.reportError(msg.Err)
		if msg.Err != nil {
			m.log.Debug().Err(msg.Err).Str("turn", msg.TurnID).Msg("playback failed")
		}
		m.refresh()
		return m, nil

	case copyDoneMsg:
		switch {
		case msg.Err != nil:
			m.reportError(msg.Err)
		case msg.Method == clipboard.MethodOSC52:
			m.setStatus("已复制（终端剪贴板）", false)
		default:
			m.setStatus("已复制", false)
		}
		return m, nil

	case savedMsg:
		switch {
		case msg.Err != nil:
			m.log.Warn().Err(msg.Err).Msg("transcript save failed")
			if msg.Manual {
				m.setStatus("保存失败："+msg.Err.Error(), true)
			}
		case msg.Manual:
			m.setStatus("已保存："+msg.ID, false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) resize(width, height int) {
	m.theme.SetSize(width, height)
	m.ready = true

	chrome := lipgloss.Height(m.headerView()) + lipgloss.Height(m.inputView()) + lipgloss.Height(m.footerView())
	m.viewport.Width = width
	m.viewport.Height = max(height-chrome, 3)
	m.input.Width = max(width-8, 10)
	m.help.Width = width
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.cancel()
		return tea.Quit, true

	case key.Matches(msg, m.keys.Submit):
		return m.submit(), true

	case key.Matches(msg, m.keys.Play):
		id, ok := m.target()
		if !ok {
			m.setStatus("还没有可以播放的回复", true)
			return nil, true
		}
		m.setStatus("正在播放…", false)
		return playCmd(m.ctx, m.ctrl, id), true

	case key.Matches(msg, m.keys.Copy):
		id, ok := m.target()
		if !ok {
			m.setStatus("还没有可以复制的回复", true)
			return nil, true
		}
		return copyCmd(m.ctrl, id), true

	case key.Matches(msg, m.keys.Prev):
		m.moveSelection(-1)
		m.refresh()
		return nil, true

	case key.Matches(msg, m.keys.Next):
		m.moveSelection(1)
		m.refresh()
		return nil, true

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return nil, true

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return nil, true

	case key.Matches(msg, m.keys.Clear):
		return m.runLocal(SlashCommand{Name: cmdClear}), true

	case key.Matches(msg, m.keys.Reload):
		return m.runLocal(SlashCommand{Name: cmdReload}), true

	case key.Matches(msg, m.keys.Save):
		return m.runLocal(SlashCommand{Name: cmdSave}), true

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.theme.Width, m.theme.Height)
		m.refresh()
		return nil, true
	}
	return nil, false
}

// submit sends the input line. The line is kept while a reply is running,
// so nothing typed is lost to the in-flight guard.
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if sc, ok := ParseSlash(text); ok {
		if sc.Name == cmdHelp || sc.Name == cmdQuit || !m.blocked() {
			m.input.Reset()
		}
		return m.runLocal(sc)
	}
	if m.blocked() {
		m.setStatus(statusForError(mchat.ErrInFlight), true)
		return nil
	}

	m.input.Reset()
	m.busy = true
	m.selected = ""
	m.setStatus("", false)
	return sendCmd(m.ctx, m.ctrl, text)
}

func (m *Model) blocked() bool {
	return m.busy || m.ctrl.InFlight()
}

// runLocal executes a TUI command.
func (m *Model) runLocal(sc SlashCommand) tea.Cmd {
	switch sc.Name {
	case cmdHelp:
		m.help.ShowAll = !m.help.ShowAll
		m.resize(m.theme.Width, m.theme.Height)
		m.refresh()
		return nil
	case cmdQuit:
		m.quitting = true
		m.cancel()
		return tea.Quit
	case cmdSave:
		if m.store == nil {
			m.setStatus("本地存档未启用", true)
			return nil
		}
		return saveCmd(m.store, m.ctrl, true)
	}

	if m.blocked() {
		m.setStatus(statusForError(mchat.ErrInFlight), true)
		return nil
	}

	switch sc.Name {
	case cmdClear:
		m.busy = true
		m.setStatus("正在清空历史记录…", false)
		return clearHistoryCmd(m.ctx, m.ctrl)
	case cmdReload:
		m.busy = true
		m.setStatus("正在加载历史记录…", false)
		return loadHistoryCmd(m.ctx, m.ctrl)
	case cmdMode:
		if sc.Args == "" {
			m.setStatus("当前模式："+m.ctrl.Session().Mode()+"，用法：/mode <名称>", false)
			return nil
		}
		m.busy = true
		return switchModeCmd(m.ctx, m.ctrl, sc.Args)
	case cmdUpload:
		path, text := SplitUpload(sc.Args)
		if path == "" {
			m.setStatus("用法：/upload <图片路径> [消息]", true)
			return nil
		}
		m.busy = true
		m.selected = ""
		m.setStatus("", false)
		return uploadCmd(m.ctx, m.ctrl, path, text)
	}
	return nil
}
