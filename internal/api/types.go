// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Location is the optional user position sent with every chat request.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message       string    `json:"message"`
	SessionID     string    `json:"session_id"`
	Mode          string    `json:"mode"`
	Location      *Location `json:"location"`
	ImageFilename string    `json:"image_filename,omitempty"`
}

// TTSRequest is the body of POST /api/tts.
type TTSRequest struct {
	Text      string `json:"text"`
	MessageID string `json:"message_id,omitempty"`
}

// GenerateKind selects the generation endpoint.
type GenerateKind string

const (
	GenerateImage GenerateKind = "image"
	GenerateVideo GenerateKind = "video"
)

// GenerateRequest is the body of POST /api/generate-image and
// POST /api/generate-video. Duration and Watermark only apply to video.
type GenerateRequest struct {
	Kind      GenerateKind `json:"-"`
	Prompt    string       `json:"prompt"`
	SessionID string       `json:"session_id"`
	Duration  int          `json:"duration,omitempty"`
	Watermark *bool        `json:"watermark,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// AuthStatus is the body of GET /api/auth-status.
type AuthStatus struct {
	Success  bool   `json:"success"`
	LoggedIn bool   `json:"logged_in"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
}

// UploadResult is the body of POST /api/chat/upload-image.
type UploadResult struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Filename    string `json:"filename"`
	Error       string `json:"error,omitempty"`
}

// HistoryEntry is one stored message from GET /api/history/{id}.
type HistoryEntry struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	ImageURL  string `json:"image_url,omitempty"`
	VideoURL  string `json:"video_url,omitempty"`
	AudioURL  string `json:"audio_url,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// HistoryResponse wraps the history list.
type HistoryResponse struct {
	History     []HistoryEntry `json:"history"`
	CurrentFile string         `json:"current_file,omitempty"`
}

// TTSResult is the body of POST /api/tts.
type TTSResult struct {
	Success  bool   `json:"success"`
	AudioURL string `json:"audio_url"`
	Filename string `json:"filename,omitempty"`
	Cached   bool   `json:"cached,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GenerateResult is the body returned by the generation endpoints.
type GenerateResult struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"image_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// URL returns the media URL for kind.
func (r *GenerateResult) URL(kind GenerateKind) string {
	if kind == GenerateVideo {
		return r.VideoURL
	}
	return r.ImageURL
}

// errorBody is the service's generic error envelope.
type errorBody struct {
	Error string `json:"error"`
}
