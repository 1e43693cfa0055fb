// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps a local archive of chat transcripts.
//
// The chat service owns the real history. This archive only records what
// the client showed, so a conversation can be reviewed after the server
// session is cleared.
//
// # Key Types
//
//   - Store: directory of JSON transcripts
//   - StoredTranscript: turns plus session id and mode
//   - TranscriptMeta: lightweight listing entry
//
// # Usage
//
//	store, err := storage.NewStore("", storage.DefaultMaxTranscripts)
//	id, err := store.Save(&storage.StoredTranscript{
//	    SessionID: sess.SessionID(),
//	    Mode:      sess.Mode(),
//	    Turns:     transcript.Snapshot(),
//	})
//	metas, err := store.List()
//
// # Storage Location
//
// Transcripts are stored in ~/.mimico/transcripts/ as JSON files.
package storage
