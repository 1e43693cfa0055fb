// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the mimico chat service.
//
// The client reuses the browser's logged-in session cookie and covers every
// endpoint the chat window talks to: auth status, the streaming chat call,
// image upload, history, clear, text-to-speech and media generation.
//
// # Key Types
//
//   - Client: rate-limited HTTP client with one 401 policy
//   - ClientError: typed error (unauthorized, timeout, connection, ...)
//   - ChatRequest, HistoryEntry, UploadResult, GenerateResult: wire types
//
// # Usage
//
//	client, err := api.NewClientWithConfig(&api.Config{
//	    BaseURL:       "https://mimico.example.com",
//	    SessionCookie: cookie,
//	})
//	body, err := client.Chat(ctx, api.ChatRequest{
//	    Message:   "你好",
//	    SessionID: sess.SessionID(),
//	    Mode:      "normal",
//	})
//	if api.IsUnauthorized(err) {
//	    // prompt for login
//	}
//	defer body.Close()
package api
