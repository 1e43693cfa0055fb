// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
	theme      string
	noMarkdown bool
	session    string
}

// NewRootCommand builds the command tree. Running it without a
// subcommand starts the full-screen TUI, or the line REPL when stdin is not
// a terminal.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "mimico",
		Short: "Terminal client for the mimico chat service",
		Long: `mimico talks to a mimico chat server from the terminal.

Log in through the browser once, then copy the "session" cookie into
~/.mimico/config.toml (server.session_cookie) or MIMICO_SESSION.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !interactive() {
				return runREPL(cmd, flags)
			}
			return runTUI(cmd, flags)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file path (default is $HOME/.mimico/config.toml)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.StringVar(&flags.theme, "theme", "", "color theme: auto, dark, light or plain")
	pf.StringVarP(&flags.session, "session", "s", "", "resume an existing server session id")
	pf.BoolVar(&flags.noMarkdown, "no-markdown", false, "print replies without markdown rendering")

	root.AddCommand(
		newTUICommand(flags),
		newChatCommand(flags),
		newAskCommand(flags),
		newHistoryCommand(flags),
		newClearCommand(flags),
		newTranscriptsCommand(flags),
		newConfigCommand(flags),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), userMessage(err))
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mimico %s\n", Version)
			fmt.Fprintf(out, "  commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  built:  %s\n", BuildDate)
		},
	}
}
