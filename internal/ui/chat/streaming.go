// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// CHANGE THROTTLE
// =============================================================================

// ChangeThrottle batches transcript change notifications for rendering.
//
// The controller mutates the transcript from its own goroutine, once per
// stream fragment. Re-rendering on every one would flicker and burn CPU, so
// changes are counted here and the Bubble Tea loop picks them up on a tick,
// at most maxFPS times per second.
type ChangeThrottle struct {
	mu        sync.Mutex
	changes   int
	lastFlush time.Time

	batchSize  int
	maxFPS     int
	minFlushMs time.Duration

	now func() time.Time
}

// NewChangeThrottle creates a throttle with defaults: 15 changes per batch
// and 30 frames per second.
func NewChangeThrottle() *ChangeThrottle {
	return NewChangeThrottleWithConfig(15, 30)
}

// NewChangeThrottleWithConfig creates a throttle with custom thresholds.
func NewChangeThrottleWithConfig(batchSize, maxFPS int) *ChangeThrottle {
	if batchSize <= 0 {
		batchSize = 15
	}
	if maxFPS <= 0 || maxFPS > 60 {
		maxFPS = 30
	}
	return &ChangeThrottle{
		batchSize:  batchSize,
		maxFPS:     maxFPS,
		minFlushMs: time.Second / time.Duration(maxFPS),
		lastFlush:  time.Now(),
		now:        time.Now,
	}
}

// Mark records a change. Safe to call from any goroutine.
func (ct *ChangeThrottle) Mark() {
	ct.mu.Lock()
	ct.changes++
	ct.mu.Unlock()
}

// Flush reports whether a re-render is due, and resets the count if so.
// A render is due when changes are pending and either the batch is full
// or a frame interval has passed.
func (ct *ChangeThrottle) Flush() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	if ct.changes == 0 {
		return false
	}
	if ct.changes < ct.batchSize && ct.now().Sub(ct.lastFlush) < ct.minFlushMs {
		return false
	}
	ct.changes = 0
	ct.lastFlush = ct.now()
	return true
}

// ForceFlush reports whether any change is pending, ignoring thresholds.
func (ct *ChangeThrottle) ForceFlush() bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	if ct.changes == 0 {
		return false
	}
	ct.changes = 0
	ct.lastFlush = ct.now()
	return true
}

// Pending returns the number of changes not yet rendered.
func (ct *ChangeThrottle) Pending() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return ct.changes
}

// Interval returns the tick interval matching maxFPS.
func (ct *ChangeThrottle) Interval() time.Duration {
	return ct.minFlushMs
}

// =============================================================================
// RENDER TICK
// =============================================================================

// renderTickMsg asks the model to check the throttle.
type renderTickMsg struct {
	Time time.Time
}

func renderTickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return renderTickMsg{Time: t}
	})
}
