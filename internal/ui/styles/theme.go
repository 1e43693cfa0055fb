// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme names accepted by NewTheme.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemePlain = "plain"
)

// Theme holds all the styled components shared by the TUI and the REPL.
type Theme struct {
	Name         string
	IsDark       bool
	ColorProfile termenv.Profile
	Renderer     *lipgloss.Renderer

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// CHROME
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	StatusBar      lipgloss.Style
	StatusKey      lipgloss.Style

	// ==========================================================================
	// TURNS
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBody       lipgloss.Style
	AssistantBody  lipgloss.Style
	Attachment     lipgloss.Style
	Hint           lipgloss.Style
	Placeholder    lipgloss.Style
	Transient      lipgloss.Style
	Offline        lipgloss.Style
	Actions        lipgloss.Style
	Selected       lipgloss.Style

	// ==========================================================================
	// INPUT AND FEEDBACK
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Error          lipgloss.Style
	Success        lipgloss.Style
	Muted          lipgloss.Style
}

// NewTheme creates a theme for stdout.
func NewTheme(name string) *Theme {
	return NewThemeFor(os.Stdout, name)
}

// NewThemeFor creates a theme for output written to w.
//
// "auto" follows the terminal background, "dark" and "light" force one, and
// "plain" disables color. NO_COLOR in the environment also disables color.
func NewThemeFor(w io.Writer, name string) *Theme {
	r := lipgloss.NewRenderer(w)

	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case ThemeDark:
		r.SetHasDarkBackground(true)
	case ThemeLight:
		r.SetHasDarkBackground(false)
	case ThemePlain:
		r.SetColorProfile(termenv.Ascii)
	default:
		name = ThemeAuto
	}
	if termenv.EnvNoColor() {
		r.SetColorProfile(termenv.Ascii)
	}

	t := &Theme{
		Name:         name,
		IsDark:       r.HasDarkBackground(),
		ColorProfile: r.ColorProfile(),
		Renderer:     r,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	s := t.Renderer.NewStyle

	// Chrome
	t.Header = s().
		Bold(true).
		Foreground(Pink).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = s().Bold(true).Foreground(Pink)
	t.HeaderSubtitle = s().Foreground(TextSecondary).Italic(true)
	t.StatusBar = s().Foreground(TextSecondary).Background(SurfaceDim).Padding(0, 1)
	t.StatusKey = s().Bold(true).Foreground(Cyan)

	// Turns
	t.UserLabel = s().Bold(true).Foreground(Cyan)
	t.AssistantLabel = s().Bold(true).Foreground(Pink)
	t.UserBody = s().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantBody = s().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)
	t.Attachment = s().Foreground(Purple).Underline(true)
	t.Hint = s().
		Foreground(Amber).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(0, 1)
	t.Placeholder = s().Foreground(TextMuted).Italic(true)
	t.Transient = s().Foreground(TextSecondary).Italic(true)
	t.Offline = s().Foreground(Amber)
	t.Actions = s().Foreground(TextMuted)
	t.Selected = s().Foreground(Purple).Bold(true)

	// Input and feedback
	t.InputContainer = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = s().Foreground(Pink).Bold(true)
	t.Error = s().Foreground(Rose).Bold(true)
	t.Success = s().Foreground(Emerald)
	t.Muted = s().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// ContentWidth is the usable text width for turn bodies.
func (t *Theme) ContentWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return max(t.Width-4, 10)
	case LayoutMedium:
		return t.Width - 8
	default:
		return min(t.Width-12, 100)
	}
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)
