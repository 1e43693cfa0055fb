// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audio plays synthesized speech and remembers where it lives.
//
// # Key Types
//
//   - Player: plays a URL or local file
//   - CommandPlayer: Player backed by an external program such as ffplay
//   - Recorder: Player that only records calls
//   - Cache: SQLite store mapping reply text to its TTS audio URL
//
// # Usage
//
//	cache, err := audio.OpenCache(audio.DefaultCachePath())
//	defer cache.Close()
//	if url, ok, _ := cache.Get(text); ok {
//	    player.Play(ctx, url)
//	}
package audio
