// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat service client.
type ClientError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Cause      error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by type, so errors.Is(err, ErrUnauthorized)
// holds for any 401 regardless of message.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Message == "" && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnauthorized
	ErrTypeTimeout
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeServer
	ErrTypeRejected
)

// String returns the error type name.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeUnauthorized:
		return "unauthorized"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeConnection:
		return "connection"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeServer:
		return "server"
	case ErrTypeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Sentinel errors for errors.Is checks. They carry no message, so they match
// any ClientError of the same type.
var (
	ErrUnauthorized = &ClientError{Type: ErrTypeUnauthorized}
	ErrTimeout      = &ClientError{Type: ErrTypeTimeout}
	ErrConnection   = &ClientError{Type: ErrTypeConnection}
)

// IsUnauthorized reports whether err is a 401 from the service.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsTimeout reports whether err is a client or context timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// transportError wraps an http.Client.Do failure.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: "chat service unreachable", Cause: err}
}

// statusError maps a non-2xx response. serverMsg is the service's own error
// text when the body carried one.
func statusError(op string, status int, serverMsg string) error {
	msg := op + " failed: HTTP " + strconv.Itoa(status)
	if serverMsg != "" {
		msg += " (" + serverMsg + ")"
	}

	switch {
	case status == http.StatusUnauthorized:
		return &ClientError{Type: ErrTypeUnauthorized, Message: msg, StatusCode: status}
	case status >= 500:
		return &ClientError{Type: ErrTypeServer, Message: msg, StatusCode: status}
	default:
		return &ClientError{Type: ErrTypeRejected, Message: msg, StatusCode: status}
	}
}
