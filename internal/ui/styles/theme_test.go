// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func TestNewThemeFor_Names(t *testing.T) {
	tests := []struct {
		in       string
		wantName string
	}{
		{"dark", ThemeDark},
		{" Light ", ThemeLight},
		{"plain", ThemePlain},
		{"", ThemeAuto},
		{"neon", ThemeAuto},
	}
	for _, tt := range tests {
		theme := NewThemeFor(io.Discard, tt.in)
		if theme.Name != tt.wantName {
			t.Errorf("NewThemeFor(%q).Name = %q, want %q", tt.in, theme.Name, tt.wantName)
		}
	}
}

func TestNewThemeFor_DarkAndLight(t *testing.T) {
	if !NewThemeFor(io.Discard, ThemeDark).IsDark {
		t.Error("dark theme should report a dark background")
	}
	if NewThemeFor(io.Discard, ThemeLight).IsDark {
		t.Error("light theme should report a light background")
	}
}

func TestPlainThemeHasNoEscapes(t *testing.T) {
	theme := NewThemeFor(io.Discard, ThemePlain)
	if theme.ColorProfile != termenv.Ascii {
		t.Fatalf("ColorProfile = %v, want Ascii", theme.ColorProfile)
	}

	out := theme.Error.Render("boom")
	if strings.Contains(out, "\x1b[") {
		t.Errorf("plain render contains escape codes: %q", out)
	}
	if !strings.Contains(out, "boom") {
		t.Errorf("render lost text: %q", out)
	}
}

func TestThemeStylesRender(t *testing.T) {
	theme := NewThemeFor(io.Discard, ThemePlain)

	styles := []struct {
		name  string
		style lipgloss.Style
	}{
		{"Header", theme.Header},
		{"UserLabel", theme.UserLabel},
		{"AssistantLabel", theme.AssistantLabel},
		{"UserBody", theme.UserBody},
		{"AssistantBody", theme.AssistantBody},
		{"Attachment", theme.Attachment},
		{"Hint", theme.Hint},
		{"StatusBar", theme.StatusBar},
		{"InputContainer", theme.InputContainer},
	}
	for _, s := range styles {
		if got := s.style.Render("x"); !strings.Contains(got, "x") {
			t.Errorf("%s.Render lost content: %q", s.name, got)
		}
	}
}

func TestLayoutMode(t *testing.T) {
	tests := []struct {
		width     int
		wantMode  LayoutMode
		wantWidth int
	}{
		{40, LayoutNarrow, 36},
		{8, LayoutNarrow, 10},
		{80, LayoutMedium, 72},
		{120, LayoutWide, 100},
		{105, LayoutWide, 93},
	}
	for _, tt := range tests {
		theme := NewThemeFor(io.Discard, ThemePlain)
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.wantMode {
			t.Errorf("GetLayoutMode(%d) = %v, want %v", tt.width, got, tt.wantMode)
		}
		if got := theme.ContentWidth(); got != tt.wantWidth {
			t.Errorf("ContentWidth(%d) = %d, want %d", tt.width, got, tt.wantWidth)
		}
	}
}
