// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	uichat "github.com/jeranaias/mimico-chat/internal/ui/chat"
	"github.com/jeranaias/mimico-chat/internal/ui/styles"
)

func newTUICommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat interface (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, flags)
		},
	}
}

func runTUI(cmd *cobra.Command, flags *globalFlags) error {
	// OSC 52 sequences go to stderr: stdout belongs to the renderer.
	a, err := newApp(flags, appOptions{interactive: true, terminal: os.Stderr})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	a.watchConfig(ctx)

	theme := styles.NewTheme(a.cfg.UI.Theme)
	m := uichat.New(uichat.Options{
		Controller: a.ctrl,
		Theme:      theme,
		Keys:       uichat.DefaultKeyMap(),
		Markdown:   a.cfg.UI.Markdown,
		HideHint:   !a.cfg.UI.ShowHint,
		Store:      a.store,
		AutoSave:   a.cfg.Storage.AutoSave,
		Logger:     a.log,
	})
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	if err != nil {
		a.log.Error().Err(err).Msg("tui exited with error")
	}
	return err
}
