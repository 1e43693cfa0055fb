// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/jeranaias/mimico-chat/internal/storage"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the complete stored transcript. It ignores the
// filtering options so the output can be loaded back as a StoredTranscript.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	return &JSONExporter{options: withDefaults(opts)}
}

// jsonDocument wraps the transcript with export details.
type jsonDocument struct {
	Version    int                       `json:"version"`
	ExportedAt time.Time                 `json:"exported_at"`
	Transcript *storage.StoredTranscript `json:"transcript"`
}

// Export converts a transcript to indented JSON.
func (e *JSONExporter) Export(t *storage.StoredTranscript) ([]byte, error) {
	if t == nil {
		return nil, errors.New("transcript is nil")
	}
	return json.MarshalIndent(jsonDocument{
		Version:    1,
		ExportedAt: e.options.now().UTC(),
		Transcript: t,
	}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
