// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/mimico-chat/internal/model"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// newMarkdownRenderer returns a glamour renderer for width, or nil when
// rendering is off or fails to initialize.
func newMarkdownRenderer(enabled bool, width int) *glamour.TermRenderer {
	if !enabled || !stdoutIsTerminal() {
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders content, returning it unchanged when md is nil or
// rendering fails.
func renderMarkdown(md *glamour.TermRenderer, content string) string {
	if md == nil {
		return content
	}
	out, err := md.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}

// =============================================================================
// TRANSCRIPT FORMATTING
// =============================================================================

// formatTurn renders one finished turn as a labeled line block. Greeting
// and hint turns format to "".
func formatTurn(t model.Turn, resolve func(string) string, md *glamour.TermRenderer) string {
	if t.Kind == model.KindPlaceholder || t.Kind == model.KindHint || t.Transient {
		return ""
	}
	label := AssistantLabelStyle.Render(model.RoleAssistant.Label() + ":")
	if t.Role == model.RoleUser {
		label = UserLabelStyle.Render(model.RoleUser.Label() + ":")
	}

	var parts []string
	if t.Kind.IsAttachment() {
		parts = append(parts, AttachmentStyle.Render(attachmentLine(t, resolve)))
	}
	if t.Text != "" {
		body := t.Text
		if t.Role == model.RoleAssistant && !t.Offline {
			body = renderMarkdown(md, body)
		}
		parts = append(parts, body)
	}
	if len(parts) == 0 {
		return ""
	}
	if strings.Contains(parts[0], "\n") || len(parts) > 1 {
		return label + "\n" + strings.Join(parts, "\n")
	}
	return label + " " + parts[0]
}

// formatTurns renders a whole transcript, one block per turn.
func formatTurns(turns []model.Turn, resolve func(string) string, md *glamour.TermRenderer) string {
	var blocks []string
	for _, t := range turns {
		if s := formatTurn(t, resolve, md); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func attachmentLine(t model.Turn, resolve func(string) string) string {
	url := t.AttachmentURL
	if resolve != nil {
		url = resolve(url)
	}
	if t.Kind == model.KindVideo {
		return "[视频] " + url
	}
	return "[图片] " + url
}

// =============================================================================
// STREAMING PRINTER
// =============================================================================

// printer writes assistant turns to a line-oriented terminal as the
// transcript changes. Text is printed incrementally; transient notices are
// printed once each on their own line.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	resolve func(string) string
	seen    map[string]*printState
	muted   bool
}

type printState struct {
	printed int
	notice  string
	done    bool
}

func newPrinter(out io.Writer, resolve func(string) string) *printer {
	return &printer{out: out, resolve: resolve, seen: make(map[string]*printState)}
}

// Prime marks turns as already shown, so only later changes print.
func (p *printer) Prime(turns []model.Turn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range turns {
		p.seen[t.ID] = &printState{printed: len(t.Text), done: true}
	}
}

// SetMuted stops or resumes printing. Changes made while muted should be
// passed to Prime before unmuting.
func (p *printer) SetMuted(muted bool) {
	p.mu.Lock()
	p.muted = muted
	p.mu.Unlock()
}

// Update prints whatever changed since the last call.
func (p *printer) Update(turns []model.Turn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.muted {
		return
	}

	for _, t := range turns {
		st, ok := p.seen[t.ID]
		if !ok {
			st = &printState{}
			p.seen[t.ID] = st
		}
		if st.done {
			continue
		}
		if t.Role != model.RoleAssistant || t.Kind == model.KindPlaceholder || t.Kind == model.KindHint {
			st.done = true
			continue
		}
		p.updateTurn(t, st)
	}
}

func (p *printer) updateTurn(t model.Turn, st *printState) {
	label := AssistantLabelStyle.Render(t.Role.Label() + ":")

	if t.Transient {
		if t.Text != "" && t.Text != st.notice {
			if st.printed > 0 {
				fmt.Fprintln(p.out)
			}
			fmt.Fprintln(p.out, DimStyle.Render(t.Text))
			st.notice = t.Text
		}
		return
	}

	if t.Kind.IsAttachment() && t.Finalized {
		fmt.Fprintf(p.out, "%s %s\n", label, AttachmentStyle.Render(attachmentLine(t, p.resolve)))
		st.done = true
		return
	}

	if st.printed > len(t.Text) {
		st.printed = len(t.Text)
	}
	if len(t.Text) > st.printed {
		if st.printed == 0 {
			fmt.Fprint(p.out, label+" ")
		}
		fmt.Fprint(p.out, t.Text[st.printed:])
		st.printed = len(t.Text)
	}

	if t.Finalized {
		if st.printed > 0 {
			fmt.Fprintln(p.out)
		}
		st.done = true
	}
}
