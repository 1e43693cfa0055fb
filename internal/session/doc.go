// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the client-side chat session.
//
// A session is identified by session_<unix-millis>, which the server uses to
// key conversation history. The manager also owns the in-flight guard: at
// most one send may be active per session.
//
// # Key Types
//
//   - Manager: session id, mode, avatar index and in-flight guard
//   - Config: mode plus injectable clock and avatar picker
//
// # Usage
//
//	sess := session.NewManager(session.DefaultConfig())
//	if !sess.TryBeginSend() {
//	    return ErrInFlight
//	}
//	defer sess.EndSend()
package session
