// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/mimico-chat/internal/clipboard"
)

// =============================================================================
// RESULT MESSAGES
// =============================================================================

// sendDoneMsg reports the end of a send, including any follow-up.
type sendDoneMsg struct {
	Err error
}

// historyLoadedMsg reports the end of a history reload.
type historyLoadedMsg struct {
	Err error
}

// historyClearedMsg reports the end of a clear.
type historyClearedMsg struct {
	Err error
}

// modeSwitchedMsg reports the end of a mode switch.
type modeSwitchedMsg struct {
	Mode string
	Err  error
}

// playDoneMsg reports the end of a playback.
type playDoneMsg struct {
	TurnID string
	Err    error
}

// copyDoneMsg reports the end of a clipboard copy.
type copyDoneMsg struct {
	Method clipboard.Method
	Err    error
}

// savedMsg reports a transcript written to the local archive.
type savedMsg struct {
	ID     string
	Manual bool
	Err    error
}
