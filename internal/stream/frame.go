// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// WIRE FORMAT
// =============================================================================

// DataPrefix marks a line that carries a JSON frame.
const DataPrefix = "data: "

// Frame type tags understood by Decode.
const (
	TypeEmoji         = "emoji"
	TypeFavoriteImage = "favorite_image"
	TypeVideo         = "video"
)

// Frame is one JSON object from a data line. All fields are optional.
type Frame struct {
	Type        string `json:"type,omitempty"`
	Content     string `json:"content,omitempty"`
	EmojiURL    string `json:"emoji_url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
	Description string `json:"description,omitempty"`
	Done        bool   `json:"done,omitempty"`
}

// ParseLine extracts the frame from a single complete line.
// It reports false for lines without the data prefix.
// A data line whose payload is not valid JSON returns the decode error.
func ParseLine(line string) (Frame, bool, error) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, DataPrefix) {
		return Frame{}, false, nil
	}
	var f Frame
	if err := json.Unmarshal([]byte(line[len(DataPrefix):]), &f); err != nil {
		return Frame{}, true, err
	}
	return f, true, nil
}
