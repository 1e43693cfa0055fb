// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/util"
)

// DefaultMaxTranscripts bounds the archive when no limit is configured.
const DefaultMaxTranscripts = 100

// =============================================================================
// STORED TRANSCRIPT TYPE
// =============================================================================

// StoredTranscript is a saved copy of a conversation as it was shown.
type StoredTranscript struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Turns []model.Turn `json:"turns"`
}

// TranscriptMeta is the listing form of a stored transcript.
type TranscriptMeta struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Mode      string    `json:"mode"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
	TurnCount int       `json:"turn_count"`
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// Store keeps transcripts as one JSON file each under BaseDir.
type Store struct {
	// BaseDir defaults to ~/.mimico/transcripts/.
	BaseDir string

	// MaxTranscripts limits stored transcripts (0 = unlimited).
	MaxTranscripts int
}

// NewStore creates a store in dir, creating it if needed.
func NewStore(dir string, max int) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".mimico", "transcripts")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &Store{BaseDir: dir, MaxTranscripts: max}, nil
}

// =============================================================================
// SAVE
// =============================================================================

// Save writes t and returns its id. Saving the same session again updates
// the existing entry. Placeholder and hint turns are not stored.
func (s *Store) Save(t *StoredTranscript) (string, error) {
	if t.ID == "" {
		t.ID = idForSession(t.SessionID)
	}

	kept := t.Turns[:0:0]
	for _, turn := range t.Turns {
		if turn.Kind == model.KindPlaceholder || turn.Kind == model.KindHint {
			continue
		}
		kept = append(kept, turn)
	}
	t.Turns = kept

	if t.Summary == "" {
		t.Summary = summarize(t.Turns)
	}
	t.UpdatedAt = time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", err
	}
	if err := util.AtomicWriteFile(s.filePath(t.ID), data, 0600); err != nil {
		return "", err
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}
	return t.ID, nil
}

// summarize uses the first user turn, flattened to one line.
func summarize(turns []model.Turn) string {
	for _, turn := range turns {
		if turn.Role != model.RoleUser || strings.TrimSpace(turn.Text) == "" {
			continue
		}
		text := strings.ReplaceAll(turn.Text, "\r", "")
		text = strings.ReplaceAll(text, "\n", " ")
		return util.TruncateRunes(text, 50)
	}
	return "New conversation"
}

func (s *Store) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}
	// List is newest first.
	for _, m := range metas[s.MaxTranscripts:] {
		s.Delete(m.ID)
	}
}

// =============================================================================
// LOAD AND LIST
// =============================================================================

// Load reads the transcript with id.
func (s *Store) Load(id string) (*StoredTranscript, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTranscriptNotFound
		}
		return nil, err
	}

	var t StoredTranscript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode transcript %s: %w", id, err)
	}
	return &t, nil
}

// LoadByIndex loads by position in List (0 = most recent).
func (s *Store) LoadByIndex(index int) (*StoredTranscript, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrTranscriptNotFound
	}
	return s.Load(metas[index].ID)
}

// List returns every readable transcript, most recent first.
// Corrupted files are skipped.
func (s *Store) List() ([]TranscriptMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []TranscriptMeta{}, nil
		}
		return nil, err
	}

	metas := make([]TranscriptMeta, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		metas = append(metas, TranscriptMeta{
			ID:        t.ID,
			SessionID: t.SessionID,
			Mode:      t.Mode,
			Summary:   t.Summary,
			UpdatedAt: t.UpdatedAt,
			TurnCount: len(t.Turns),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes the transcript with id.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrTranscriptNotFound
		}
		return err
	}
	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatList renders metas as a fixed-width table.
func FormatList(metas []TranscriptMeta) string {
	if len(metas) == 0 {
		return "No saved transcripts."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-4s %-28s %-16s %5s  %s\n", "#", "ID", "Updated", "Turns", "Summary")
	for i, m := range metas {
		fmt.Fprintf(&sb, "%-4d %-28s %-16s %5d  %s\n",
			i, util.TruncateRunes(m.ID, 28), m.UpdatedAt.Format("2006-01-02 15:04"),
			m.TurnCount, util.TruncateWidth(m.Summary, 40))
	}
	return sb.String()
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// idForSession keys the file by session so repeated saves overwrite.
// Unsafe characters are replaced; sessionless saves get a random id.
func idForSession(sessionID string) string {
	if sessionID == "" {
		return "transcript_" + uuid.NewString()[:8]
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, sessionID)
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrTranscriptNotFound is returned when no transcript has the id.
var ErrTranscriptNotFound = errors.New("transcript not found")
