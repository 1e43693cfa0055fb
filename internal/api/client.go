// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// SessionCookieName is the cookie the service uses for login state.
const SessionCookieName = "session"

// Config holds configuration options for the chat service client.
type Config struct {
	// BaseURL is the service root, e.g. https://mimico.example.com
	BaseURL string

	// SessionCookie is the value of the logged-in browser session cookie.
	SessionCookie string

	// Timeout for non-streaming requests (default: 30s). Uploads and
	// generation use GenerateTimeout instead.
	Timeout time.Duration

	// GenerateTimeout bounds image recognition and media generation
	// (default: 3m).
	GenerateTimeout time.Duration

	// RequestsPerSecond and Burst limit outgoing calls (default: 5/s, 5).
	RequestsPerSecond float64
	Burst             int

	// UserAgent is sent on every request.
	UserAgent string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "http://127.0.0.1:5000",
		Timeout:           30 * time.Second,
		GenerateTimeout:   3 * time.Minute,
		RequestsPerSecond: 5,
		Burst:             5,
		UserAgent:         "mimico-chat",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat service. Every method applies the same 401
// policy: the response is mapped to an error matching ErrUnauthorized.
//
// The Client is safe for concurrent use.
type Client struct {
	config       *Config
	baseURL      *url.URL
	httpClient   *http.Client
	streamClient *http.Client
	slowClient   *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a client with the default configuration.
func NewClient() *Client {
	c, _ := NewClientWithConfig(DefaultConfig())
	return c
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.GenerateTimeout <= 0 {
		config.GenerateTimeout = def.GenerateTimeout
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = def.RequestsPerSecond
	}
	if config.Burst <= 0 {
		config.Burst = def.Burst
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}

	base, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", config.BaseURL)
	}

	return &Client{
		config:     config,
		baseURL:    base,
		httpClient: &http.Client{Timeout: config.Timeout},
		// Streaming responses last as long as the reply; the caller bounds
		// them through the request context.
		streamClient: &http.Client{},
		slowClient:   &http.Client{Timeout: config.GenerateTimeout},
		limiter:      rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
	}, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL turns a server-relative path such as /static/x.mp3 into an
// absolute URL. Absolute inputs are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.baseURL.ResolveReference(u).String()
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transportError(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.SessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.config.SessionCookie})
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends req and decodes a JSON body into out. Non-2xx statuses become
// ClientErrors carrying the service's error message when present.
func (c *Client) do(client *http.Client, req *http.Request, op string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, readErrorMessage(resp.Body))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: op + ": failed to decode response", Cause: err}
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	var body errorBody
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	if json.Unmarshal(data, &body) != nil {
		return ""
	}
	return body.Error
}

// =============================================================================
// AUTH
// =============================================================================

// AuthStatus reports whether the session cookie belongs to a logged-in user.
func (c *Client) AuthStatus(ctx context.Context) (*AuthStatus, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/auth-status", nil)
	if err != nil {
		return nil, err
	}
	var status AuthStatus
	if err := c.do(c.httpClient, req, "auth status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// =============================================================================
// CHAT
// =============================================================================

// Chat posts a message and returns the open event stream. The caller must
// close the returned body.
func (c *Client) Chat(ctx context.Context, chatReq ChatRequest) (io.ReadCloser, error) {
	req, err := c.newJSONRequest(ctx, "/api/chat", chatReq)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError("chat", resp.StatusCode, readErrorMessage(resp.Body))
	}
	return resp.Body, nil
}

// UploadImage sends an image for recognition. name is used for the form
// file name, whose extension the service validates.
func (c *Client) UploadImage(ctx context.Context, name string, image io.Reader) (*UploadResult, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", filepath.Base(name))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to build upload", Cause: err}
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to read image", Cause: err}
	}
	if err := form.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to build upload", Cause: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/chat/upload-image", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var result UploadResult
	if err := c.do(c.slowClient, req, "image upload", &result); err != nil {
		return nil, err
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "image upload rejected"
		}
		return nil, &ClientError{Type: ErrTypeRejected, Message: msg}
	}
	return &result, nil
}

// =============================================================================
// HISTORY
// =============================================================================

// History returns the stored conversation for sessionID.
func (c *Client) History(ctx context.Context, sessionID string) ([]HistoryEntry, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/history/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	var resp HistoryResponse
	if err := c.do(c.httpClient, req, "history", &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// Clear deletes the stored conversation for sessionID.
func (c *Client) Clear(ctx context.Context, sessionID string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/clear/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}
	return c.do(c.httpClient, req, "clear history", nil)
}

// =============================================================================
// SPEECH AND GENERATION
// =============================================================================

// TTS synthesizes speech for text and returns the audio URL.
func (c *Client) TTS(ctx context.Context, text, messageID string) (string, error) {
	req, err := c.newJSONRequest(ctx, "/api/tts", TTSRequest{Text: text, MessageID: messageID})
	if err != nil {
		return "", err
	}
	var result TTSResult
	if err := c.do(c.slowClient, req, "tts", &result); err != nil {
		return "", err
	}
	if !result.Success || result.AudioURL == "" {
		msg := result.Error
		if msg == "" {
			msg = "speech synthesis failed"
		}
		return "", &ClientError{Type: ErrTypeRejected, Message: msg}
	}
	return result.AudioURL, nil
}

// Generate creates an image or video from a prompt.
func (c *Client) Generate(ctx context.Context, genReq GenerateRequest) (*GenerateResult, error) {
	path := "/api/generate-image"
	if genReq.Kind == GenerateVideo {
		path = "/api/generate-video"
		if genReq.Duration == 0 {
			genReq.Duration = 5
		}
		if genReq.Watermark == nil {
			off := false
			genReq.Watermark = &off
		}
	} else {
		genReq.Duration = 0
		genReq.Watermark = nil
	}

	req, err := c.newJSONRequest(ctx, path, genReq)
	if err != nil {
		return nil, err
	}
	var result GenerateResult
	if err := c.do(c.slowClient, req, "generate "+string(genReq.Kind), &result); err != nil {
		return nil, err
	}
	if !result.Success {
		msg := result.Error
		if msg == "" {
			msg = "生成失败"
		}
		return nil, &ClientError{Type: ErrTypeRejected, Message: msg}
	}
	return &result, nil
}

// ErrorMessage extracts the user-facing message from err.
func ErrorMessage(err error) string {
	var ce *ClientError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
