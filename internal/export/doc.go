// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes saved transcripts out as Markdown, JSON or HTML.
//
// Markdown and HTML exports hold what was readable on screen: the greeting,
// empty turns and (by default) the skills panel are left out. JSON exports
// carry the whole stored transcript.
//
// # Key Types
//
//   - Exporter: one output format
//   - Format: format names accepted on the command line
//   - Options: output directory, metadata and HTML theme
//
// # Usage
//
//	format, err := export.ParseFormat("md")
//	exporter, err := export.New(format, export.DefaultOptions())
//	path, err := export.ExportToFile(transcript, exporter, opts)
package export
