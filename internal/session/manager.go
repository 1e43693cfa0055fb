// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"math/rand/v2"
	"strconv"
	"sync"
	"time"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// DefaultMode is the only conversation mode the service currently offers.
const DefaultMode = "normal"

// AvatarCount is the number of assistant avatars to pick from.
const AvatarCount = 5

// Config holds configuration for the session manager.
type Config struct {
	// Mode is the conversation mode sent with every chat request.
	Mode string

	// Now replaces the clock in tests.
	Now func() time.Time

	// Avatar picks an index in [1, AvatarCount]. Random when nil.
	Avatar func() int
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{Mode: DefaultMode}
}

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager holds the per-window chat session: its id, mode, avatar and the
// single in-flight guard that serializes sends.
//
// The session id never changes during the manager's lifetime except through
// Renew. All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	sessionID    string
	mode         string
	avatar       int
	startTime    time.Time
	lastActivity time.Time

	inFlight bool

	now        func() time.Time
	pickAvatar func() int
}

// NewManager creates a session with a fresh id.
func NewManager(cfg Config) *Manager {
	if cfg.Mode == "" {
		cfg.Mode = DefaultMode
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Avatar == nil {
		cfg.Avatar = randomAvatar
	}

	m := &Manager{
		mode:       cfg.Mode,
		now:        cfg.Now,
		pickAvatar: cfg.Avatar,
	}
	m.startLocked()
	return m
}

// NewManagerWithID resumes an existing server-side session.
func NewManagerWithID(id string, cfg Config) *Manager {
	m := NewManager(cfg)
	if id != "" {
		m.sessionID = id
	}
	return m
}

func (m *Manager) startLocked() {
	now := m.now()
	m.sessionID = generateSessionID(now)
	m.avatar = clampAvatar(m.pickAvatar())
	m.startTime = now
	m.lastActivity = now
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionID returns the current session ID.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// Mode returns the conversation mode.
func (m *Manager) Mode() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// AvatarIndex returns the assistant avatar for this session, 1 through 5.
func (m *Manager) AvatarIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avatar
}

// StartTime returns when the session started.
func (m *Manager) StartTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startTime
}

// IdleTime returns how long since the last send.
func (m *Manager) IdleTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity)
}

// Renew starts a new session in mode and returns the previous id.
// The caller clears the previous session's server history.
func (m *Manager) Renew(mode string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.sessionID
	if mode != "" {
		m.mode = mode
	}
	m.startLocked()
	if m.sessionID == old {
		// Same millisecond; keep ids distinct.
		m.sessionID += "_1"
	}
	return old
}

// =============================================================================
// IN-FLIGHT GUARD
// =============================================================================

// TryBeginSend claims the in-flight guard. It returns false when a send is
// already running, in which case the caller must not touch any state.
func (m *Manager) TryBeginSend() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return false
	}
	m.inFlight = true
	m.lastActivity = m.now()
	return true
}

// EndSend releases the guard. Releasing an idle guard is harmless.
func (m *Manager) EndSend() {
	m.mu.Lock()
	m.inFlight = false
	m.mu.Unlock()
}

// InFlight reports whether a send is running.
func (m *Manager) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// =============================================================================
// HELPERS
// =============================================================================

// generateSessionID returns session_<unix-millis>.
func generateSessionID(t time.Time) string {
	return "session_" + strconv.FormatInt(t.UnixMilli(), 10)
}

func randomAvatar() int {
	return rand.IntN(AvatarCount) + 1
}

func clampAvatar(i int) int {
	if i < 1 || i > AvatarCount {
		return 1
	}
	return i
}
