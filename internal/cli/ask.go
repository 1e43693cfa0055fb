// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	mchat "github.com/jeranaias/mimico-chat/internal/chat"
	"github.com/jeranaias/mimico-chat/internal/model"
)

func newAskCommand(flags *globalFlags) *cobra.Command {
	var image string
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message and print the reply",
		Long: `Send one message and print the reply.

The message is read from stdin when no argument is given or the argument
is "-". /image and /video prompts work here too.`,
		Example: `  mimico ask "今天天气怎么样"
  mimico ask --image cat.png "这是什么品种"
  echo "/image 一只可爱的小猫" | mimico ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			if text == "" || text == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(data)
			}
			return runAsk(cmd, flags, text, image)
		},
	}
	cmd.Flags().StringVarP(&image, "image", "i", "", "image file to send with the message")
	return cmd
}

func runAsk(cmd *cobra.Command, flags *globalFlags, text, imagePath string) error {
	a, err := newApp(flags, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	in := mchat.Input{Text: text}
	if imagePath != "" {
		f, err := os.Open(imagePath)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		in.ImageName = filepath.Base(imagePath)
		in.Image = f
	}

	tr := a.ctrl.Transcript()
	before := make(map[string]bool)
	for _, t := range tr.Snapshot() {
		before[t.ID] = true
	}

	if err := a.ctrl.Send(ctx, in); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	md := newMarkdownRenderer(a.cfg.UI.Markdown, replyWidth())
	var replies []model.Turn
	for _, t := range tr.Snapshot() {
		if !before[t.ID] && t.Role == model.RoleAssistant {
			replies = append(replies, t)
		}
	}
	if out := formatReplies(replies, a.client.ResolveURL, md); out != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out)
	}
	return nil
}

// formatReplies prints reply bodies without labels, the way a one-shot
// command is expected to answer.
func formatReplies(turns []model.Turn, resolve func(string) string, md *glamour.TermRenderer) string {
	var parts []string
	for _, t := range turns {
		switch {
		case t.Transient || t.Kind == model.KindHint || t.Kind == model.KindPlaceholder:
		case t.Kind.IsAttachment():
			parts = append(parts, attachmentLine(t, resolve))
		case t.Text != "":
			parts = append(parts, renderMarkdown(md, t.Text))
		}
	}
	return strings.Join(parts, "\n")
}
