// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TERMINAL
// =============================================================================

const (
	// fallbackWidth is used for replies printed to a pipe or file.
	fallbackWidth = 80

	// narrowestWidth keeps markdown replies readable in tiny panes.
	narrowestWidth = 40
)

func stdinIsTerminal() bool  { return term.IsTerminal(int(os.Stdin.Fd())) }
func stdoutIsTerminal() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

// interactive reports whether the full-screen client can own the terminal.
// Anything else, such as `echo hi | mimico`, gets the line REPL.
func interactive() bool {
	return stdinIsTerminal() && stdoutIsTerminal()
}

// replyWidth is the wrap width for replies printed by ask and history.
func replyWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	switch {
	case err != nil || width <= 0:
		return fallbackWidth
	case width < narrowestWidth:
		return narrowestWidth
	default:
		return width
	}
}

// colorProfile honours NO_COLOR and FORCE_COLOR (https://no-color.org/)
// before asking the terminal.
func colorProfile(getenv func(string) string, tty bool) termenv.Profile {
	switch {
	case getenv("NO_COLOR") != "":
		return termenv.Ascii
	case getenv("FORCE_COLOR") != "":
		return termenv.ANSI256
	case !tty:
		return termenv.Ascii
	default:
		return termenv.ColorProfile()
	}
}
