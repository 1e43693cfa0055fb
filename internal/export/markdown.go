// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/storage"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports transcripts to Markdown with YAML front matter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	return &MarkdownExporter{options: withDefaults(opts)}
}

// frontMatter is the metadata block at the top of a Markdown export.
type frontMatter struct {
	Title     string `yaml:"title"`
	Session   string `yaml:"session"`
	Mode      string `yaml:"mode"`
	Created   string `yaml:"date"`
	Updated   string `yaml:"updated"`
	Turns     int    `yaml:"turns"`
	Exported  string `yaml:"exported"`
	Generator string `yaml:"generator"`
}

// Export converts a transcript to Markdown.
func (e *MarkdownExporter) Export(t *storage.StoredTranscript) ([]byte, error) {
	turns, err := exportableTurns(t, e.options)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		meta, err := yaml.Marshal(frontMatter{
			Title:     t.Summary,
			Session:   t.SessionID,
			Mode:      t.Mode,
			Created:   t.CreatedAt.Format(time.RFC3339),
			Updated:   t.UpdatedAt.Format(time.RFC3339),
			Turns:     len(turns),
			Exported:  e.options.now().Format(time.RFC3339),
			Generator: "mimico-chat",
		})
		if err != nil {
			return nil, fmt.Errorf("front matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(meta)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(t.Summary))

	if e.options.IncludeMetadata {
		fmt.Fprintf(&sb, "- **会话**: `%s`\n", t.SessionID)
		fmt.Fprintf(&sb, "- **模式**: %s\n", t.Mode)
		fmt.Fprintf(&sb, "- **保存于**: %s\n\n", formatTimestamp(t.UpdatedAt))
		sb.WriteString("---\n\n")
	}

	for i, turn := range turns {
		if e.options.IncludeTimestamps && !turn.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", turn.Role.Label(), formatShortTimestamp(turn.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", turn.Role.Label())
		}

		sb.WriteString(e.formatTurnBody(turn))
		sb.WriteString("\n\n")

		if i < len(turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(strings.TrimRight(sb.String(), "\n") + "\n"), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatTurnBody puts the attachment first, then any text.
func (e *MarkdownExporter) formatTurnBody(turn model.Turn) string {
	var parts []string
	switch {
	case turn.Kind == model.KindImage && turn.AttachmentURL != "":
		parts = append(parts, fmt.Sprintf("![%s](%s)", attachmentLabel(turn.Kind), turn.AttachmentURL))
	case turn.AttachmentURL != "":
		parts = append(parts, fmt.Sprintf("[%s](%s)", attachmentLabel(turn.Kind), turn.AttachmentURL))
	}
	if text := strings.TrimSpace(turn.Text); text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.NewReplacer(
		"#", `\#`,
		"*", `\*`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
	).Replace(s)
}
