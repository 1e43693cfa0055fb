// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/storage"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports transcripts to a standalone HTML page. Turn text is
// treated as Markdown and sanitized after rendering.
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
	policy  *bluemonday.Policy
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	return &HTMLExporter{
		options: withDefaults(opts),
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Export converts a transcript to HTML.
func (e *HTMLExporter) Export(t *storage.StoredTranscript) ([]byte, error) {
	turns, err := exportableTurns(t, e.options)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	title := html.EscapeString(t.Summary)

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"zh-CN\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", title)
	sb.WriteString("    <meta name=\"generator\" content=\"mimico-chat\">\n")
	fmt.Fprintf(&sb, "    <meta name=\"date\" content=\"%s\">\n", t.CreatedAt.Format(time.RFC3339))
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", e.options.Theme)
	sb.WriteString("    <main class=\"container\">\n")

	sb.WriteString("        <header>\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", title)
	if e.options.IncludeMetadata {
		sb.WriteString("            <div class=\"metadata\">\n")
		fmt.Fprintf(&sb, "                <span>会话 <code>%s</code></span>\n", html.EscapeString(t.SessionID))
		fmt.Fprintf(&sb, "                <span>模式 %s</span>\n", html.EscapeString(t.Mode))
		fmt.Fprintf(&sb, "                <span>保存于 %s</span>\n", formatTimestamp(t.UpdatedAt))
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <section class=\"conversation\">\n")
	for _, turn := range turns {
		body, err := e.renderTurn(turn)
		if err != nil {
			return nil, err
		}
		sb.WriteString(body)
	}
	sb.WriteString("        </section>\n")

	fmt.Fprintf(&sb, "        <footer>Exported from mimico-chat on %s</footer>\n",
		e.options.now().Format("2006-01-02 15:04"))
	sb.WriteString("    </main>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING HELPERS
// =============================================================================

func (e *HTMLExporter) renderTurn(turn model.Turn) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "            <div class=\"turn %s-turn\">\n", turn.Role)
	sb.WriteString("                <div class=\"turn-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(turn.Role.Label()))
	if e.options.IncludeTimestamps && !turn.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(turn.CreatedAt))
	}
	sb.WriteString("                </div>\n")
	sb.WriteString("                <div class=\"turn-body\">\n")

	if media := renderAttachment(turn); media != "" {
		sb.WriteString(media)
	}
	if text := strings.TrimSpace(turn.Text); text != "" {
		var buf bytes.Buffer
		if err := e.md.Convert([]byte(text), &buf); err != nil {
			return "", fmt.Errorf("render turn %s: %w", turn.ID, err)
		}
		sb.Write(e.policy.SanitizeBytes(buf.Bytes()))
	}

	sb.WriteString("                </div>\n")
	sb.WriteString("            </div>\n")
	return sb.String(), nil
}

// renderAttachment emits an inline player or image for safe URLs and a
// plain label otherwise.
func renderAttachment(turn model.Turn) string {
	if turn.AttachmentURL == "" {
		return ""
	}
	label := attachmentLabel(turn.Kind)
	if !safeURL(turn.AttachmentURL) {
		return fmt.Sprintf("<p class=\"attachment\">[%s] %s</p>\n", label, html.EscapeString(turn.AttachmentURL))
	}
	src := html.EscapeString(turn.AttachmentURL)
	if turn.Kind == model.KindVideo {
		return fmt.Sprintf("<video class=\"attachment\" controls src=\"%s\"></video>\n<p><a href=\"%s\">%s</a></p>\n", src, src, label)
	}
	return fmt.Sprintf("<img class=\"attachment\" src=\"%s\" alt=\"%s\">\n", src, label)
}

// safeURL accepts http(s) and server-relative references.
func safeURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "":
		return strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//")
	default:
		return false
	}
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const htmlCSS = `    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, "PingFang SC", "Noto Sans CJK SC", sans-serif; line-height: 1.6; }
        .dark-theme { background: #1a1b26; color: #c0caf5; }
        .light-theme { background: #f7f7f9; color: #1f2335; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        header { margin-bottom: 2rem; }
        h1 { font-size: 1.6rem; margin-bottom: 0.5rem; }
        .metadata span { margin-right: 1.25rem; opacity: 0.75; font-size: 0.9rem; }
        .turn { border-radius: 10px; padding: 0.9rem 1.1rem; margin-bottom: 1rem; }
        .dark-theme .user-turn { background: #2a2e44; }
        .dark-theme .assistant-turn { background: #24283b; }
        .light-theme .user-turn { background: #e3ecff; }
        .light-theme .assistant-turn { background: #ffffff; }
        .turn-header { display: flex; justify-content: space-between; font-weight: 600; margin-bottom: 0.4rem; }
        .timestamp { font-weight: 400; opacity: 0.6; font-size: 0.85rem; }
        .turn-body p { margin: 0.4rem 0; }
        .turn-body pre { overflow-x: auto; padding: 0.75rem; border-radius: 6px; background: rgba(0,0,0,0.25); }
        .attachment { max-width: 100%; border-radius: 6px; margin: 0.4rem 0; }
        footer { margin-top: 2rem; opacity: 0.6; font-size: 0.85rem; text-align: center; }
    </style>
`
