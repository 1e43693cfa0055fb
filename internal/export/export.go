// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/storage"
	"github.com/jeranaias/mimico-chat/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a saved transcript into one file format.
type Exporter interface {
	// Export converts a transcript to the target format and returns the content.
	Export(t *storage.StoredTranscript) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrEmptyTranscript is returned when nothing in a transcript is exportable.
var ErrEmptyTranscript = errors.New("transcript has no exportable turns")

// =============================================================================
// FORMATS
// =============================================================================

// Format names an export format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
)

// ParseFormat accepts a format name or its usual file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "html", "htm":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// New returns the exporter for format.
func New(format Format, opts *Options) (Exporter, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownExporter(opts), nil
	case FormatJSON:
		return NewJSONExporter(opts), nil
	case FormatHTML:
		return NewHTMLExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", format)
	}
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is where files are written. Default: current directory.
	OutputDir string

	// IncludeMetadata adds session, mode and dates to the output.
	IncludeMetadata bool

	// IncludeTimestamps adds the time to every turn heading.
	IncludeTimestamps bool

	// IncludeHints keeps the skills panel turns.
	IncludeHints bool

	// Theme for HTML export ("light" or "dark"). Default: "dark".
	Theme string

	// Now stamps the export. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		Theme:             "dark",
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func withDefaults(opts *Options) *Options {
	if opts == nil {
		return DefaultOptions()
	}
	o := *opts
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.Theme != "light" {
		o.Theme = "dark"
	}
	return &o
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile renders t with exporter and writes it under opts.OutputDir.
// Returns the path of the written file.
func ExportToFile(t *storage.StoredTranscript, exporter Exporter, opts *Options) (string, error) {
	opts = withDefaults(opts)

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	name := t.Summary
	if strings.TrimSpace(name) == "" {
		name = t.ID
	}
	filename := fmt.Sprintf("transcript_%s_%s%s",
		sanitizeFilename(name),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// exportableTurns drops what only makes sense on screen: the greeting,
// empty turns and, unless asked for, the skills panel.
func exportableTurns(t *storage.StoredTranscript, opts *Options) ([]model.Turn, error) {
	if t == nil {
		return nil, errors.New("transcript is nil")
	}
	turns := make([]model.Turn, 0, len(t.Turns))
	for _, turn := range t.Turns {
		switch {
		case turn.Kind == model.KindPlaceholder:
			continue
		case turn.Kind == model.KindHint:
			if !opts.IncludeHints {
				continue
			}
		case !turn.HasContent():
			continue
		}
		turns = append(turns, turn)
	}
	if len(turns) == 0 {
		return nil, ErrEmptyTranscript
	}
	return turns, nil
}

// attachmentLabel names the media kind of an attachment turn.
func attachmentLabel(kind model.Kind) string {
	if kind == model.KindVideo {
		return "视频"
	}
	return "图片"
}

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "transcript"
	}
	return b.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
