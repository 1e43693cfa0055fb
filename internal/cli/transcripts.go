// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/mimico-chat/internal/export"
	"github.com/jeranaias/mimico-chat/internal/storage"
)

func newTranscriptsCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transcripts",
		Aliases: []string{"saved"},
		Short:   "Manage locally saved conversations",
	}

	openStore := func() (*storage.Store, error) {
		cfg, _, err := loadConfig(flags)
		if err != nil {
			return nil, err
		}
		return storage.NewStore(cfg.Storage.Dir, cfg.Storage.MaxTranscripts)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			metas, err := store.List()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(storage.FormatList(metas), "\n"))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id|number>",
		Short: "Print a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			t, err := loadTranscript(store, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, TitleStyle.Render(t.Summary))
			fmt.Fprintln(out, DimStyle.Render(fmt.Sprintf("%s · %s · %s", t.SessionID, t.Mode, t.UpdatedAt.Format("2006-01-02 15:04"))))
			fmt.Fprintln(out)
			fmt.Fprintln(out, formatTurns(t.Turns, nil, nil))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id|number>",
		Short: "Delete a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			t, err := loadTranscript(store, args[0])
			if err != nil {
				return err
			}
			if err := store.Delete(t.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted "+t.ID))
			return nil
		},
	})

	cmd.AddCommand(newTranscriptsExportCommand(openStore))

	return cmd
}

func newTranscriptsExportCommand(openStore func() (*storage.Store, error)) *cobra.Command {
	var (
		format     string
		outputDir  string
		theme      string
		noMetadata bool
		withHints  bool
	)

	cmd := &cobra.Command{
		Use:   "export <id|number>",
		Short: "Write a saved conversation to Markdown, JSON or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			t, err := loadTranscript(store, args[0])
			if err != nil {
				return err
			}

			opts := export.DefaultOptions()
			opts.OutputDir = outputDir
			opts.Theme = theme
			opts.IncludeMetadata = !noMetadata
			opts.IncludeHints = withHints

			exporter, err := export.New(f, opts)
			if err != nil {
				return err
			}
			path, err := export.ExportToFile(t, exporter, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Exported "+path))
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown, json or html")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory to write the file to")
	cmd.Flags().StringVar(&theme, "html-theme", "dark", "HTML page theme: dark or light")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "leave out session and date details")
	cmd.Flags().BoolVar(&withHints, "hints", false, "keep the skills panel turns")
	return cmd
}

// loadTranscript accepts an id or the "#" column from "list".
func loadTranscript(store *storage.Store, ref string) (*storage.StoredTranscript, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		return store.LoadByIndex(n)
	}
	return store.Load(ref)
}
