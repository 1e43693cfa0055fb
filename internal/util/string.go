// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// TruncateRunes shortens s to at most maxRunes characters, ending in "..."
// when something was cut. It never splits a multibyte character.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// StringWidth returns the number of terminal columns s occupies.
// CJK characters and most emoji take two columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// TruncateWidth shortens s to fit maxWidth columns, ending in "...".
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// Wrap breaks s into lines no wider than width columns. Existing newlines
// are kept. Breaks prefer spaces; CJK text, which has none, breaks between
// characters.
func Wrap(s string, width int) []string {
	if width <= 0 {
		return strings.Split(s, "\n")
	}

	var out []string
	for _, para := range strings.Split(s, "\n") {
		if runewidth.StringWidth(para) <= width {
			out = append(out, para)
			continue
		}
		out = append(out, wrapLine(para, width)...)
	}
	return out
}

func wrapLine(line string, width int) []string {
	var (
		out       []string
		cur       []rune
		curWidth  int
		lastSpace = -1
	)
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if curWidth+w > width && len(cur) > 0 {
			if lastSpace > 0 {
				out = append(out, strings.TrimRight(string(cur[:lastSpace]), " "))
				cur = append([]rune(nil), cur[lastSpace+1:]...)
			} else {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			curWidth = runewidth.StringWidth(string(cur))
			lastSpace = -1
		}
		if r == ' ' {
			lastSpace = len(cur)
		}
		cur = append(cur, r)
		curWidth += w
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	return out
}
