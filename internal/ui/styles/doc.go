// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling for mimico's terminal front ends.
//
// Colors are lipgloss AdaptiveColors, so they follow the terminal
// background. A Theme binds them to a lipgloss renderer for one output,
// which lets the REPL and tests render without touching the real terminal.
//
// # Key Types
//
//   - Theme: every style used by the TUI and the REPL
//   - LayoutMode: narrow, medium or wide, from the terminal width
//   - StatusIndicators: ASCII state markers that do not rely on color
//
// # Usage
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	theme.SetSize(width, height)
//	fmt.Println(theme.AssistantLabel.Render("AI"))
package styles
