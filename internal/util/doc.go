// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across mimico.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - StringWidth, TruncateWidth, Wrap: terminal column aware text layout
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, 0600)
//	for _, line := range util.Wrap(reply, 60) {
//	    fmt.Println(line)
//	}
package util
