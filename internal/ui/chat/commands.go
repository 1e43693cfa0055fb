// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	mchat "github.com/jeranaias/mimico-chat/internal/chat"
	"github.com/jeranaias/mimico-chat/internal/storage"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// Local commands handled by the TUI. /image and /video are not listed:
// they go to the controller like any other message.
const (
	cmdClear  = "/clear"
	cmdMode   = "/mode"
	cmdReload = "/reload"
	cmdSave   = "/save"
	cmdUpload = "/upload"
	cmdHelp   = "/help"
	cmdQuit   = "/quit"
)

// SlashCommand is a parsed local command.
type SlashCommand struct {
	Name string
	Args string
}

// ParseSlash recognizes the TUI's own commands. Anything else, including
// /image and /video, is returned with ok false.
func ParseSlash(text string) (SlashCommand, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return SlashCommand{}, false
	}
	name, args, _ := strings.Cut(text, " ")
	switch name {
	case cmdClear, cmdMode, cmdReload, cmdSave, cmdUpload, cmdHelp, cmdQuit:
		return SlashCommand{Name: name, Args: strings.TrimSpace(args)}, true
	case "/exit", "/q":
		return SlashCommand{Name: cmdQuit}, true
	default:
		return SlashCommand{}, false
	}
}

// SplitUpload separates "/upload <path> [message]" arguments. Paths with
// spaces can be quoted.
func SplitUpload(args string) (path, text string) {
	args = strings.TrimSpace(args)
	if args == "" {
		return "", ""
	}
	if q := args[0]; q == '"' || q == '\'' {
		if end := strings.IndexByte(args[1:], q); end >= 0 {
			return args[1 : end+1], strings.TrimSpace(args[end+2:])
		}
	}
	path, text, _ = strings.Cut(args, " ")
	return path, strings.TrimSpace(text)
}

// =============================================================================
// CONTROLLER COMMANDS
// =============================================================================

func sendCmd(ctx context.Context, ctrl Controller, text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{Err: ctrl.Send(ctx, mchat.Input{Text: text})}
	}
}

// uploadCmd sends an image file with an optional message.
func uploadCmd(ctx context.Context, ctrl Controller, path, text string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(expandHome(path))
		if err != nil {
			return sendDoneMsg{Err: fmt.Errorf("open image: %w", err)}
		}
		defer f.Close()
		return sendDoneMsg{Err: ctrl.Send(ctx, mchat.Input{
			Text:      text,
			ImageName: filepath.Base(path),
			Image:     f,
		})}
	}
}

func loadHistoryCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return historyLoadedMsg{Err: ctrl.LoadHistory(ctx)}
	}
}

func clearHistoryCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return historyClearedMsg{Err: ctrl.ClearHistory(ctx)}
	}
}

func switchModeCmd(ctx context.Context, ctrl Controller, mode string) tea.Cmd {
	return func() tea.Msg {
		return modeSwitchedMsg{Mode: mode, Err: ctrl.SwitchMode(ctx, mode)}
	}
}

func playCmd(ctx context.Context, ctrl Controller, turnID string) tea.Cmd {
	return func() tea.Msg {
		return playDoneMsg{TurnID: turnID, Err: ctrl.Play(ctx, turnID)}
	}
}

func copyCmd(ctrl Controller, turnID string) tea.Cmd {
	return func() tea.Msg {
		method, err := ctrl.Copy(turnID)
		return copyDoneMsg{Method: method, Err: err}
	}
}

// saveCmd archives the current transcript. Transcripts without a user turn
// are skipped unless the save was requested.
func saveCmd(store *storage.Store, ctrl Controller, manual bool) tea.Cmd {
	if store == nil {
		return nil
	}
	turns := ctrl.Transcript().Snapshot()
	sess := ctrl.Session()
	return func() tea.Msg {
		if !manual && !hasUserTurn(turns) {
			return nil
		}
		id, err := store.Save(&storage.StoredTranscript{
			SessionID: sess.SessionID(),
			Mode:      sess.Mode(),
			Turns:     turns,
		})
		return savedMsg{ID: id, Manual: manual, Err: err}
	}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
