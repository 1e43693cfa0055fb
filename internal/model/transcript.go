// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"
)

// =============================================================================
// SCHEDULING
// =============================================================================

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc schedules on the runtime timer.
func RealAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// DefaultResetDelay is the pause between the skills panel and the greeting.
const DefaultResetDelay = 880 * time.Millisecond

// =============================================================================
// TRANSCRIPT
// =============================================================================

// TurnOptions controls CreateTurn.
type TurnOptions struct {
	Loading   bool
	Transient bool
	ImageURL  string
	VideoURL  string

	// Caption adds a finalized text turn right after an attachment turn.
	Caption string

	// AudioURL presets the cached speech for a rehydrated turn.
	AudioURL string

	// Kind overrides the inferred kind. Used for hint and placeholder turns.
	Kind Kind
}

// TranscriptConfig configures a Transcript.
type TranscriptConfig struct {
	// ResetDelay is how long ResetAll waits before seeding the greeting.
	ResetDelay time.Duration

	// AfterFunc replaces the runtime timer in tests.
	AfterFunc AfterFunc

	// OnChange runs after every mutation, outside the lock.
	OnChange func()
}

// Transcript is the ordered collection of visible turns.
//
// Turns are only ever appended, except by ResetAll and Replace which swap
// the whole collection. All methods are safe for concurrent use.
type Transcript struct {
	mu    sync.RWMutex
	turns []*Turn
	index map[string]*Turn

	// generation invalidates a pending greeting when the collection is
	// replaced before the reset delay elapses.
	generation uint64
	seed       Timer

	resetDelay time.Duration
	afterFunc  AfterFunc
	onChange   func()
}

// NewTranscript creates a transcript holding the initial greeting.
func NewTranscript(cfg TranscriptConfig) *Transcript {
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = DefaultResetDelay
	}
	if cfg.AfterFunc == nil {
		cfg.AfterFunc = RealAfterFunc
	}
	t := &Transcript{
		index:      make(map[string]*Turn),
		resetDelay: cfg.ResetDelay,
		afterFunc:  cfg.AfterFunc,
		onChange:   cfg.OnChange,
	}
	t.appendLocked(newPlaceholder())
	return t
}

// SetOnChange replaces the change hook.
func (t *Transcript) SetOnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

func (t *Transcript) notify() {
	t.mu.RLock()
	fn := t.onChange
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (t *Transcript) appendLocked(turn *Turn) {
	t.turns = append(t.turns, turn)
	t.index[turn.ID] = turn
}

func newPlaceholder() *Turn {
	return &Turn{
		ID:        NewTurnID(),
		Role:      RoleAssistant,
		Kind:      KindPlaceholder,
		Text:      PlaceholderText,
		Finalized: true,
		CreatedAt: time.Now(),
	}
}

func newHint() *Turn {
	return &Turn{
		ID:        NewTurnID(),
		Role:      RoleAssistant,
		Kind:      KindHint,
		Text:      HintText,
		Finalized: true,
		CreatedAt: time.Now(),
	}
}

// =============================================================================
// CREATION
// =============================================================================

// CreateTurn appends a turn and returns its id.
//
// A turn created with Loading or Transient stays open for AppendText until
// Finalize. Any other turn is final on creation. Loading only applies to
// assistant turns.
func (t *Transcript) CreateTurn(role Role, text string, opts TurnOptions) string {
	turn := &Turn{
		ID:        NewTurnID(),
		Role:      role,
		Kind:      KindText,
		Text:      text,
		CreatedAt: time.Now(),
	}

	switch {
	case opts.Kind != "":
		turn.Kind = opts.Kind
	case opts.ImageURL != "":
		turn.Kind = KindImage
		turn.AttachmentURL = opts.ImageURL
	case opts.VideoURL != "":
		turn.Kind = KindVideo
		turn.AttachmentURL = opts.VideoURL
	}

	if role == RoleAssistant {
		turn.Loading = opts.Loading && text == ""
		turn.Transient = opts.Transient && text != ""
	}
	turn.Finalized = !turn.Loading && !turn.Transient
	turn.ensureActions()
	if opts.AudioURL != "" && turn.Actions != nil {
		turn.Actions.AudioURL = opts.AudioURL
	}
	if turn.Finalized && IsOfflineText(turn.Text) && turn.Actions != nil {
		turn.Offline = true
		turn.Actions.Offline = true
	}

	t.mu.Lock()
	t.appendLocked(turn)
	if opts.Caption != "" && turn.Kind.IsAttachment() {
		caption := &Turn{
			ID:        NewTurnID(),
			Role:      role,
			Kind:      KindText,
			Text:      opts.Caption,
			Finalized: true,
			CreatedAt: time.Now(),
		}
		caption.ensureActions()
		t.appendLocked(caption)
	}
	t.mu.Unlock()

	t.notify()
	return turn.ID
}

// =============================================================================
// MUTATION
// =============================================================================

// mutate applies fn to an open or closed turn and notifies on change.
func (t *Transcript) mutate(id string, fn func(*Turn) bool) bool {
	t.mu.Lock()
	turn, ok := t.index[id]
	changed := ok && fn(turn)
	t.mu.Unlock()

	if changed {
		t.notify()
	}
	return changed
}

// AppendText adds fragment to an open turn.
//
// The first call clears the loading indicator. A transient notice is
// replaced rather than extended. Unknown or finalized ids are ignored.
func (t *Transcript) AppendText(id, fragment string) bool {
	return t.mutate(id, func(turn *Turn) bool {
		if turn.Finalized {
			return false
		}
		turn.Loading = false
		if turn.Transient {
			turn.Text = ""
			turn.Transient = false
		}
		turn.Text += fragment
		turn.ensureActions()
		return true
	})
}

// ShowTransient displays a temporary notice in an open turn that has no
// real content yet.
func (t *Transcript) ShowTransient(id, text string) bool {
	return t.mutate(id, func(turn *Turn) bool {
		if turn.Finalized || turn.HasContent() {
			return false
		}
		turn.Text = text
		turn.Transient = true
		turn.Loading = false
		return true
	})
}

// ClearTransient removes a temporary notice and leaves the turn empty.
func (t *Transcript) ClearTransient(id string) bool {
	return t.mutate(id, func(turn *Turn) bool {
		if !turn.Transient {
			return false
		}
		turn.Text = ""
		turn.Transient = false
		return true
	})
}

// BeginLoading switches an open turn to the loading indicator.
// A turn that already holds real content never returns to loading.
func (t *Transcript) BeginLoading(id string) bool {
	return t.mutate(id, func(turn *Turn) bool {
		if turn.Finalized || turn.HasContent() {
			return false
		}
		turn.Text = ""
		turn.Transient = false
		turn.Loading = true
		return true
	})
}

// Attach turns an open turn into a finalized attachment turn.
func (t *Transcript) Attach(id string, kind Kind, url string) bool {
	if !kind.IsAttachment() || url == "" {
		return false
	}
	return t.mutate(id, func(turn *Turn) bool {
		if turn.Finalized {
			return false
		}
		turn.Kind = kind
		turn.AttachmentURL = url
		turn.Text = ""
		turn.Transient = false
		turn.Loading = false
		turn.Finalized = true
		return true
	})
}

// Finalize closes a turn and returns its final state.
//
// Loading is cleared and a leftover transient notice is dropped. A turn
// whose trimmed text equals OfflineText is marked offline. Finalizing twice
// is harmless.
func (t *Transcript) Finalize(id string) (Turn, bool) {
	var out Turn
	found := false
	t.mutate(id, func(turn *Turn) bool {
		found = true
		if turn.Finalized {
			out = turn.clone()
			return false
		}
		turn.Loading = false
		if turn.Transient {
			turn.Text = ""
			turn.Transient = false
		}
		turn.Finalized = true
		turn.ensureActions()
		if IsOfflineText(turn.Text) {
			turn.Offline = true
			if turn.Actions != nil {
				turn.Actions.Offline = true
			}
		}
		out = turn.clone()
		return true
	})
	return out, found
}

// SetAudioURL caches synthesized speech for a turn. The first URL wins;
// the returned value is the one actually cached.
func (t *Transcript) SetAudioURL(id, url string) string {
	var cached string
	t.mutate(id, func(turn *Turn) bool {
		if turn.Actions == nil {
			return false
		}
		if turn.Actions.AudioURL != "" {
			cached = turn.Actions.AudioURL
			return false
		}
		turn.Actions.AudioURL = url
		cached = url
		return true
	})
	return cached
}

// =============================================================================
// RESET AND RELOAD
// =============================================================================

// ResetAll clears the transcript, shows the skills panel immediately and
// seeds the greeting after the reset delay. A Replace or another ResetAll
// before the delay elapses cancels the pending greeting.
func (t *Transcript) ResetAll() {
	t.mu.Lock()
	t.generation++
	gen := t.generation
	if t.seed != nil {
		t.seed.Stop()
	}
	t.turns = nil
	t.index = make(map[string]*Turn)
	t.appendLocked(newHint())
	t.seed = t.afterFunc(t.resetDelay, func() { t.seedGreeting(gen) })
	t.mu.Unlock()

	t.notify()
}

func (t *Transcript) seedGreeting(gen uint64) {
	t.mu.Lock()
	if t.generation != gen {
		t.mu.Unlock()
		return
	}
	t.seed = nil
	t.appendLocked(newPlaceholder())
	t.mu.Unlock()

	t.notify()
}

// Replace swaps the whole collection, as after a history reload.
// Turns without an id get one; ordering is preserved.
func (t *Transcript) Replace(turns []Turn) {
	fresh := make([]*Turn, 0, len(turns))
	for i := range turns {
		turn := turns[i].clone()
		if turn.ID == "" {
			turn.ID = NewTurnID()
		}
		if turn.Kind == "" {
			turn.Kind = KindText
		}
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = time.Now()
		}
		turn.Loading = false
		turn.Transient = false
		turn.Finalized = true
		turn.ensureActions()
		if turn.Actions != nil && turn.Actions.ID == "" {
			turn.Actions.ID = "act_" + turn.ID
		}
		fresh = append(fresh, &turn)
	}

	t.mu.Lock()
	t.generation++
	if t.seed != nil {
		t.seed.Stop()
		t.seed = nil
	}
	t.turns = nil
	t.index = make(map[string]*Turn, len(fresh))
	for _, turn := range fresh {
		t.appendLocked(turn)
	}
	t.mu.Unlock()

	t.notify()
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a copy of the turn with id.
func (t *Transcript) Get(id string) (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	turn, ok := t.index[id]
	if !ok {
		return Turn{}, false
	}
	return turn.clone(), true
}

// Snapshot returns copies of every turn in order.
func (t *Transcript) Snapshot() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Turn, len(t.turns))
	for i, turn := range t.turns {
		out[i] = turn.clone()
	}
	return out
}

// Len returns the number of turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// IsPristine reports whether only the initial greeting is present.
func (t *Transcript) IsPristine() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns) == 1 && t.turns[0].Kind == KindPlaceholder
}

// ReseedPending reports whether a greeting is still scheduled.
func (t *Transcript) ReseedPending() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.seed != nil
}
