// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen Bubble Tea interface for mimico.
//
// The model owns no conversation state. It renders the controller's
// transcript and turns key presses into controller calls, each run as a
// tea.Cmd so the UI never blocks on the network.
//
// # Key Types
//
//   - Model: the Bubble Tea model for the chat screen
//   - Controller: the conversation engine the model drives
//   - Renderer: draws a transcript view model with the active theme
//   - ChangeThrottle: caps re-renders while a reply streams in
//   - KeyMap: keyboard bindings
//
// # Usage
//
//	m := chat.New(chat.Options{
//	    Controller: ctrl,
//	    Theme:      styles.NewTheme(styles.ThemeAuto),
//	    Markdown:   true,
//	})
//	defer m.Close()
//	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
package chat
