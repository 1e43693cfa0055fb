// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the server-side history of a session",
		Long: `Print the server-side history of a session.

Every run starts a new session unless chat.session_id is configured or
--session is given, so without either the history is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ctrl.LoadHistory(cmd.Context()); err != nil {
				return err
			}
			md := newMarkdownRenderer(a.cfg.UI.Markdown, replyWidth())
			out := formatTurns(a.ctrl.Transcript().Snapshot(), a.client.ResolveURL, md)
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("(no history for "+a.ctrl.Session().SessionID()+")"))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newClearCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the server-side history of a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ctrl.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Cleared history for "+a.ctrl.Session().SessionID()))
			return nil
		},
	}
}
