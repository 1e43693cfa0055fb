// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation state rendered by the client.
//
// This package owns the ordered list of turns shown to the user and the
// rules for mutating it while a reply streams in.
//
// # Key Types
//
//   - Turn: one user or assistant entry (text, image or video)
//   - ActionGroup: play/copy controls with the write-once audio URL
//   - Transcript: concurrency-safe turn collection with reset and reload
//   - ViewModel: pure projection of the transcript for rendering
//
// # Usage
//
// Stream an assistant reply into a new turn:
//
//	tr := model.NewTranscript(model.TranscriptConfig{})
//	id := tr.CreateTurn(model.RoleAssistant, "", model.TurnOptions{Loading: true})
//	tr.AppendText(id, "Hel")
//	tr.AppendText(id, "lo")
//	final, _ := tr.Finalize(id)
//
// Render it:
//
//	for _, v := range tr.View().Turns {
//	    fmt.Println(v.Label, v.Body)
//	}
//
// # Lifecycle
//
// An assistant turn moves from loading to receiving to finalized and never
// goes back. Its action group appears with the first non-empty text and is
// never duplicated.
package model
