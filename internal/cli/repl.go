// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	mchat "github.com/jeranaias/mimico-chat/internal/chat"
	"github.com/jeranaias/mimico-chat/internal/config"
	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/storage"
	uichat "github.com/jeranaias/mimico-chat/internal/ui/chat"
)

func newChatCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a line-based chat session",
		Long: `Start a line-based chat session with input history.

Replies stream in as plain text. Type /help for the session commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd, flags)
		},
	}
}

const replHelp = `Commands:
  /image <描述>          generate an image
  /video <描述>          generate a video
  /upload <path> [text]  send an image with an optional message
  /play [n]              speak the newest reply, or the n-th newest
  /copy [n]              copy the newest reply, or the n-th newest
  /mode [name]           show or switch the conversation mode
  /reload                reprint the server history
  /clear                 clear the server history
  /save                  save this conversation locally
  /quit                  exit (also Ctrl+D)
  Ctrl+C                 cancel the current reply`

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides input history and line editing for the REPL.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader() *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	r := &lineReader{line: line, historyFile: filepath.Join(configDir, "chat_history")}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return r
}

// ReadInput reads a line, adding non-empty input to history.
func (r *lineReader) ReadInput(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with 0600 permissions and restores the terminal.
func (r *lineReader) Close() {
	if err := os.MkdirAll(filepath.Dir(r.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = r.line.WriteHistory(f)
			f.Close()
		}
	}
	r.line.Close()
}

// =============================================================================
// REPL SESSION
// =============================================================================

type replSession struct {
	app     *app
	out     io.Writer
	printer *printer

	mu     sync.Mutex
	cancel context.CancelFunc
}

func runREPL(cmd *cobra.Command, flags *globalFlags) error {
	a, err := newApp(flags, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()
	a.watchConfig(ctx)

	out := cmd.OutOrStdout()
	s := &replSession{app: a, out: out, printer: newPrinter(out, a.client.ResolveURL)}
	tr := a.ctrl.Transcript()
	tr.SetOnChange(func() { s.printer.Update(tr.Snapshot()) })

	// Ctrl+C while a reply streams cancels it; at the prompt, liner handles it.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go forwardInterrupts(ctx, sigChan, func() {
		if s.cancelCurrent() {
			fmt.Fprintln(os.Stderr, "\n"+WarningStyle.Render("[Cancelled]"))
		}
	})

	fmt.Fprintln(out, TitleStyle.Render("mimico")+" "+DimStyle.Render(a.ctrl.Session().Mode()+" · /help for commands"))
	s.run(ctx, func(ctx context.Context) error { return s.reload(ctx) })

	reader := newLineReader()
	defer reader.Close()

	for {
		input, err := reader.ReadInput(PromptStyle.Render("mimico> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF
			fmt.Fprintln(out)
			s.save(false)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !s.handle(ctx, input) {
			s.save(false)
			return nil
		}
	}
}

// handle runs one input line. It returns false to end the session.
func (s *replSession) handle(ctx context.Context, input string) bool {
	name, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch name {
	case "/quit", "/exit", "/q":
		return false
	case "/help", "/h":
		fmt.Fprintln(s.out, replHelp)
	case "/reload":
		s.run(ctx, s.reload)
	case "/clear":
		s.run(ctx, func(ctx context.Context) error {
			if err := s.app.ctrl.ClearHistory(ctx); err != nil {
				return err
			}
			s.printer.Prime(s.app.ctrl.Transcript().Snapshot())
			fmt.Fprintln(s.out, SuccessStyle.Render("历史记录已清空"))
			return nil
		})
	case "/mode":
		if args == "" {
			fmt.Fprintln(s.out, "mode: "+s.app.ctrl.Session().Mode())
			break
		}
		s.run(ctx, func(ctx context.Context) error {
			if err := s.app.ctrl.SwitchMode(ctx, args); err != nil {
				return err
			}
			s.printer.Prime(s.app.ctrl.Transcript().Snapshot())
			fmt.Fprintln(s.out, SuccessStyle.Render("已切换到 "+args+" 模式"))
			return nil
		})
	case "/play":
		s.run(ctx, func(ctx context.Context) error {
			id, err := replyID(s.app.ctrl.Transcript(), args)
			if err != nil {
				return err
			}
			return s.app.ctrl.Play(ctx, id)
		})
	case "/copy":
		id, err := replyID(s.app.ctrl.Transcript(), args)
		if err == nil {
			_, err = s.app.ctrl.Copy(id)
		}
		s.report(err, "已复制")
	case "/save":
		s.save(true)
	case "/upload":
		path, text := uichat.SplitUpload(args)
		if path == "" {
			s.report(errors.New("用法：/upload <图片路径> [消息]"), "")
			break
		}
		s.run(ctx, func(ctx context.Context) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			return s.app.ctrl.Send(ctx, mchat.Input{Text: text, ImageName: filepath.Base(path), Image: f})
		})
	default:
		s.run(ctx, func(ctx context.Context) error {
			return s.app.ctrl.Send(ctx, mchat.Input{Text: input})
		})
	}
	return true
}

// run executes fn with a context Ctrl+C can cancel, then reports errors.
func (s *replSession) run(parent context.Context, fn func(context.Context) error) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	err := fn(ctx)

	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
	cancel()

	if !errors.Is(err, context.Canceled) {
		s.report(err, "")
	}
}

func (s *replSession) cancelCurrent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// reload fetches the server history and prints it in full.
func (s *replSession) reload(ctx context.Context) error {
	tr := s.app.ctrl.Transcript()
	s.printer.SetMuted(true)
	defer s.printer.SetMuted(false)
	err := s.app.ctrl.LoadHistory(ctx)
	turns := tr.Snapshot()
	s.printer.Prime(turns)
	if err != nil {
		return err
	}
	if text := formatTurns(turns, s.app.client.ResolveURL, nil); text != "" {
		fmt.Fprintln(s.out, text)
	}
	return nil
}

func (s *replSession) save(manual bool) {
	if s.app.store == nil || (!manual && !s.app.cfg.Storage.AutoSave) {
		return
	}
	turns := s.app.ctrl.Transcript().Snapshot()
	if !manual && !hasUserTurn(turns) {
		return
	}
	sess := s.app.ctrl.Session()
	id, err := s.app.store.Save(&storage.StoredTranscript{
		SessionID: sess.SessionID(),
		Mode:      sess.Mode(),
		Turns:     turns,
	})
	if err != nil {
		s.app.log.Warn().Err(err).Msg("transcript save failed")
	}
	if manual {
		s.report(err, "已保存："+id)
	}
}

func (s *replSession) report(err error, success string) {
	switch {
	case err != nil:
		fmt.Fprintln(s.out, ErrorStyle.Render("[Error]")+" "+userMessage(err))
	case success != "":
		fmt.Fprintln(s.out, SuccessStyle.Render(success))
	}
}

// replyID resolves "/play n" style arguments: empty is the newest reply
// with controls, n counts back from it starting at 1.
func replyID(tr *model.Transcript, arg string) (string, error) {
	n := 1
	if arg != "" {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 1 {
			return "", fmt.Errorf("invalid reply number %q", arg)
		}
		n = v
	}
	turns := tr.Snapshot()
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role != model.RoleAssistant || turns[i].Actions == nil || turns[i].Transient {
			continue
		}
		n--
		if n == 0 {
			return turns[i].ID, nil
		}
	}
	return "", mchat.ErrTurnNotFound
}

func hasUserTurn(turns []model.Turn) bool {
	for _, t := range turns {
		if t.Role == model.RoleUser {
			return true
		}
	}
	return false
}

// forwardInterrupts calls onInterrupt for every signal until ctx is done.
func forwardInterrupts(ctx context.Context, sigs <-chan os.Signal, onInterrupt func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigs:
			onInterrupt()
		}
	}
}
