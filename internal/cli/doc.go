// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the mimico command line.
//
// Every command builds the same wiring from config: the service client, a
// chat controller with its session and transcript, audio playback with the
// TTS cache, and the local transcript archive. Commands differ only in how
// they present the transcript.
//
// # Commands
//
//   - (none), tui: full-screen Bubble Tea interface
//   - chat: line REPL with liner history and streamed plain output
//   - ask: one message in, the reply out, for scripts and pipes
//   - history, clear: server-side history of a session
//   - transcripts list|show|delete|export: locally saved conversations
//   - config show|path|init: configuration file
//   - version
//
// # Usage
//
//	func main() {
//	    cli.Execute()
//	}
package cli
