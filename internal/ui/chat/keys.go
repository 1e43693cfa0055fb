// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Submit   key.Binding
	Play     key.Binding
	Copy     key.Binding
	Prev     key.Binding
	Next     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Clear    key.Binding
	Reload   key.Binding
	Save     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings.
// Letters stay free for typing, so every action uses a modifier.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Play: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "play"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("C-y", "copy"),
		),
		Prev: key.NewBinding(
			key.WithKeys("alt+up", "ctrl+up"),
			key.WithHelp("M-↑", "previous reply"),
		),
		Next: key.NewBinding(
			key.WithKeys("alt+down", "ctrl+down"),
			key.WithHelp("M-↓", "next reply"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear history"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "reload history"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save transcript"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the status line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Play, k.Copy, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the help panel.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Play, k.Copy},
		{k.Prev, k.Next, k.PageUp, k.PageDown},
		{k.Clear, k.Reload, k.Save, k.Quit},
	}
}
