// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes the chat service's streaming response body.
//
// The service answers POST /api/chat with a byte stream of newline-delimited
// lines. Lines prefixed with "data: " carry one JSON object each; everything
// else is ignored. Bytes arrive in arbitrary chunks, so multibyte UTF-8
// sequences and lines may both straddle chunk boundaries.
//
// # Key Types
//
//   - Splitter: push-style incremental UTF-8 decoder and line splitter
//   - Reader: pull-style frame reader over an io.Reader
//   - Frame: the wire object carried by one data line
//   - Event: tagged union produced by Decode (TextDelta, Emoji, FavoriteImage,
//     Video, Done, Unknown)
//
// # Usage
//
//	r := stream.NewReader(resp.Body, logger)
//	for {
//	    frame, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    for _, ev := range stream.Decode(frame) {
//	        handle(ev)
//	    }
//	}
//
// A partial line left over when the stream ends is discarded. Malformed JSON
// on a data line is logged and skipped without ending the stream.
package stream
