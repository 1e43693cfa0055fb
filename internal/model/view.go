// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// VIEW MODEL
// =============================================================================

// TurnView is the render-ready projection of one turn.
type TurnView struct {
	ID         string
	Role       Role
	Label      string
	Kind       Kind
	Body       string
	Attachment string
	Loading    bool
	Transient  bool
	Offline    bool

	// Actions is true when play/copy controls are shown.
	Actions     bool
	AudioCached bool
}

// ViewModel is the whole transcript as the UI renders it.
type ViewModel struct {
	Turns []TurnView
}

// Project converts turns into a view model.
//
// Finalized assistant text turns that never received content are omitted,
// so a reply that ended without text leaves nothing behind.
func Project(turns []Turn) ViewModel {
	vm := ViewModel{Turns: make([]TurnView, 0, len(turns))}
	for i := range turns {
		turn := &turns[i]
		if hidden(turn) {
			continue
		}
		v := TurnView{
			ID:         turn.ID,
			Role:       turn.Role,
			Label:      turn.Role.Label(),
			Kind:       turn.Kind,
			Body:       turn.Text,
			Attachment: attachmentLine(turn),
			Loading:    turn.Loading,
			Transient:  turn.Transient,
			Offline:    turn.Offline,
			Actions:    turn.Actions != nil,
		}
		if turn.Actions != nil {
			v.AudioCached = turn.Actions.AudioURL != ""
		}
		vm.Turns = append(vm.Turns, v)
	}
	return vm
}

// View projects the current transcript.
func (t *Transcript) View() ViewModel {
	return Project(t.Snapshot())
}

func hidden(turn *Turn) bool {
	return turn.Role == RoleAssistant &&
		turn.Finalized &&
		turn.Kind == KindText &&
		turn.Text == "" &&
		turn.AttachmentURL == ""
}

func attachmentLine(turn *Turn) string {
	switch turn.Kind {
	case KindImage:
		return "[图片] " + turn.AttachmentURL
	case KindVideo:
		return "[视频] " + turn.AttachmentURL
	default:
		return ""
	}
}
