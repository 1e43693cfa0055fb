// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat runs the client side of a mimico conversation.
//
// The Controller sends messages, streams replies into a model.Transcript,
// runs /image and /video generation, reloads and clears server history,
// and plays or copies assistant turns. Any front end (the TUI, the REPL,
// the one-shot ask command) drives the same Controller and renders the
// transcript's view model.
//
// # Key Types
//
//   - Controller: send, history, generation, play and copy
//   - Service: the chat service calls the controller needs (*api.Client)
//   - Input: one user message with an optional image
//   - Timing: user-visible delays, injectable for tests
//
// # Usage
//
//	ctrl, err := chat.New(chat.Options{
//	    Service:    client,
//	    Session:    session.NewManager(session.DefaultConfig()),
//	    Transcript: model.NewTranscript(model.TranscriptConfig{}),
//	    Player:     player,
//	    Logger:     log,
//	})
//	if err := ctrl.Send(ctx, chat.Input{Text: "你好"}); errors.Is(err, chat.ErrLoginRequired) {
//	    fmt.Println(chat.LoginPrompt)
//	}
//
// # Concurrency
//
// Only one send runs at a time. A second Send while one is streaming
// returns ErrInFlight and changes nothing.
package chat
