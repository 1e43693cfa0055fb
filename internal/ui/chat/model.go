// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	mchat "github.com/jeranaias/mimico-chat/internal/chat"
	"github.com/jeranaias/mimico-chat/internal/clipboard"
	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/session"
	"github.com/jeranaias/mimico-chat/internal/storage"
	"github.com/jeranaias/mimico-chat/internal/ui/styles"
)

// =============================================================================
// CONTROLLER INTERFACE
// =============================================================================

// Controller is the conversation engine the TUI drives.
// *chat.Controller implements it.
type Controller interface {
	Send(ctx context.Context, in mchat.Input) error
	LoadHistory(ctx context.Context) error
	ClearHistory(ctx context.Context) error
	SwitchMode(ctx context.Context, mode string) error
	Play(ctx context.Context, turnID string) error
	Copy(turnID string) (clipboard.Method, error)
	LastAssistant() (string, bool)
	InFlight() bool
	Transcript() *model.Transcript
	Session() *session.Manager
}

var _ Controller = (*mchat.Controller)(nil)

// =============================================================================
// MODEL
// =============================================================================

// Options configures a Model.
type Options struct {
	Controller Controller
	Theme      *styles.Theme
	Keys       KeyMap

	// Markdown renders finished replies through glamour.
	Markdown bool

	// HideHint drops the usage hint shown after a clear.
	HideHint bool

	// Store receives transcripts on /save and, with AutoSave, after each
	// finished send. Nil disables archiving.
	Store    *storage.Store
	AutoSave bool

	Logger zerolog.Logger
}

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctrl     Controller
	theme    *styles.Theme
	keys     KeyMap
	renderer *Renderer
	throttle *ChangeThrottle
	store    *storage.Store
	autoSave bool
	log      zerolog.Logger

	// ctx is canceled on quit, aborting whatever the controller is doing.
	ctx    context.Context
	cancel context.CancelFunc

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model

	// selected is the turn the play and copy keys act on. Empty means the
	// newest reply.
	selected string

	status    string
	statusErr bool
	busy      bool
	ready     bool
	quitting  bool
}

// New creates the chat screen model. The transcript's change hook is taken
// over to drive rendering.
func New(opts Options) *Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(styles.ThemeAuto)
	}
	keys := opts.Keys
	if len(keys.Submit.Keys()) == 0 {
		keys = DefaultKeyMap()
	}

	ti := textinput.New()
	ti.Placeholder = "说点什么… (/image 描述 生成图片，/upload 路径 发送图片)"
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.CharLimit = 4000
	ti.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot), spinner.WithStyle(theme.Transient))

	renderer := NewRenderer(theme, opts.Markdown)
	renderer.HideHint = opts.HideHint

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		ctrl:     opts.Controller,
		theme:    theme,
		keys:     keys,
		renderer: renderer,
		throttle: NewChangeThrottle(),
		store:    opts.Store,
		autoSave: opts.AutoSave,
		log:      opts.Logger,
		ctx:      ctx,
		cancel:   cancel,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		help:     help.New(),
	}
	m.ctrl.Transcript().SetOnChange(m.throttle.Mark)
	return m
}

// Init starts the render loop and loads the server-side history.
func (m *Model) Init() tea.Cmd {
	m.busy = true
	m.setStatus("正在加载历史记录…", false)
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		renderTickCmd(m.throttle.Interval()),
		loadHistoryCmd(m.ctx, m.ctrl),
	)
}

// Close cancels outstanding work. Safe to call more than once.
func (m *Model) Close() {
	m.cancel()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// reportError shows err in the status line, or clears it for nil.
func (m *Model) reportError(err error) {
	msg := statusForError(err)
	m.setStatus(msg, msg != "")
}

// target is the turn play and copy act on.
func (m *Model) target() (string, bool) {
	if m.selected != "" {
		if _, ok := m.ctrl.Transcript().Get(m.selected); ok {
			return m.selected, true
		}
		m.selected = ""
	}
	return m.ctrl.LastAssistant()
}

// moveSelection steps through replies with controls. Moving past the
// newest reply returns to following it.
func (m *Model) moveSelection(delta int) {
	ids := actionable(m.ctrl.Transcript().View())
	if len(ids) == 0 {
		m.selected = ""
		return
	}
	i := indexOf(ids, m.selected)
	if i < 0 {
		i = len(ids)
	}
	i += delta
	switch {
	case i < 0:
		i = 0
	case i >= len(ids):
		m.selected = ""
		return
	}
	m.selected = ids[i]
}

// refresh re-renders the transcript into the viewport, keeping the view
// pinned to the bottom when it already was.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() <= m.viewport.Height
	selected := m.selected
	if selected == "" {
		selected, _ = m.ctrl.LastAssistant()
	}
	content := m.renderer.Render(m.ctrl.Transcript().View(), RenderState{
		Selected: selected,
		Spinner:  m.spinner.View() + " 思考中",
	})
	m.viewport.SetContent(content)
	if atBottom && m.selected == "" {
		m.viewport.GotoBottom()
	}
}
