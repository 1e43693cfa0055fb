// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/mimico-chat/internal/ui/styles"
)

// init configures lipgloss color profile based on terminal capabilities.
func init() {
	lipgloss.SetColorProfile(colorProfile(os.Getenv, stdoutIsTerminal()))
}

// =============================================================================
// SHARED STYLES FOR ALL CLI COMMANDS
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Pink)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(14)

	// ValueStyle is used for regular values and text
	ValueStyle = lipgloss.NewStyle().
			Foreground(styles.TextPrimary)

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald).
			Bold(true)

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	// WarningStyle is used for warnings and cautions
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	// DimStyle is used for secondary information and transient notices
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Italic(true)

	// PromptStyle is the REPL prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	// UserLabelStyle and AssistantLabelStyle prefix turns in plain output
	UserLabelStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)
	AssistantLabelStyle = lipgloss.NewStyle().
				Foreground(styles.Pink).
				Bold(true)

	// AttachmentStyle marks image and video links
	AttachmentStyle = lipgloss.NewStyle().
			Foreground(styles.Purple).
			Underline(true)
)
