// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

// =============================================================================
// EVENTS
// =============================================================================

// Kind identifies an Event variant.
type Kind int

const (
	KindTextDelta Kind = iota
	KindEmoji
	KindFavoriteImage
	KindVideo
	KindDone
	KindUnknown
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindTextDelta:
		return "text_delta"
	case KindEmoji:
		return "emoji"
	case KindFavoriteImage:
		return "favorite_image"
	case KindVideo:
		return "video"
	case KindDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is a decoded stream event. Switch on Kind() or on the concrete type.
type Event interface {
	Kind() Kind
}

// TextDelta is an incremental fragment of the assistant's reply.
type TextDelta struct {
	Content string
}

// Emoji is a sticker image sent by the assistant.
type Emoji struct {
	URL string
}

// FavoriteImage is an image with an optional caption.
type FavoriteImage struct {
	URL         string
	Description string
}

// Video is a video clip with an optional caption.
type Video struct {
	URL         string
	Description string
}

// Done marks the end of the reply.
type Done struct{}

// Unknown carries a type tag this client does not understand.
type Unknown struct {
	Type string
}

func (TextDelta) Kind() Kind     { return KindTextDelta }
func (Emoji) Kind() Kind         { return KindEmoji }
func (FavoriteImage) Kind() Kind { return KindFavoriteImage }
func (Video) Kind() Kind         { return KindVideo }
func (Done) Kind() Kind          { return KindDone }
func (Unknown) Kind() Kind       { return KindUnknown }

// Decode converts one frame into events, in the order they must be applied.
//
// An attachment (emoji, favorite image, video) comes first. Content in the
// same frame follows as a TextDelta, and a set done flag always ends the list.
// A typed frame missing its URL falls through to content and done handling.
func Decode(f Frame) []Event {
	events := make([]Event, 0, 2)

	switch {
	case f.Type == TypeEmoji && f.EmojiURL != "":
		events = append(events, Emoji{URL: f.EmojiURL})
	case f.Type == TypeFavoriteImage && f.ImageURL != "":
		events = append(events, FavoriteImage{URL: f.ImageURL, Description: f.Description})
	case f.Type == TypeVideo && f.VideoURL != "":
		events = append(events, Video{URL: f.VideoURL, Description: f.Description})
	case f.Type != "" && !knownType(f.Type):
		events = append(events, Unknown{Type: f.Type})
	}

	if f.Content != "" {
		events = append(events, TextDelta{Content: f.Content})
	}
	if f.Done {
		events = append(events, Done{})
	}
	return events
}

func knownType(t string) bool {
	switch t {
	case TypeEmoji, TypeFavoriteImage, TypeVideo:
		return true
	}
	return false
}
