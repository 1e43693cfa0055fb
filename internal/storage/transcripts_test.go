// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/mimico-chat/internal/model"
)

func newTestStore(t *testing.T, max int) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), max)
	require.NoError(t, err)
	return store
}

func sampleTurns() []model.Turn {
	return []model.Turn{
		{ID: "p", Role: model.RoleAssistant, Kind: model.KindPlaceholder, Text: model.PlaceholderText},
		{ID: "u1", Role: model.RoleUser, Kind: model.KindText, Text: "你好\n世界"},
		{ID: "a1", Role: model.RoleAssistant, Kind: model.KindText, Text: "Hello",
			Actions: &model.ActionGroup{ID: "act_a1", AudioURL: "/static/audio/x.mp3"}},
		{ID: "a2", Role: model.RoleAssistant, Kind: model.KindImage, AttachmentURL: "/static/img/cat.png"},
	}
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	store, err := NewStore(dir, 7)
	require.NoError(t, err)
	assert.Equal(t, dir, store.BaseDir)
	assert.Equal(t, 7, store.MaxTranscripts)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t, 0)

	id, err := store.Save(&StoredTranscript{
		SessionID: "session_1700000000000",
		Mode:      "normal",
		Turns:     sampleTurns(),
	})
	require.NoError(t, err)
	assert.Equal(t, "session_1700000000000", id)

	loaded, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "normal", loaded.Mode)
	assert.Equal(t, "你好 世界", loaded.Summary)
	require.Len(t, loaded.Turns, 3, "placeholder is not stored")

	assert.Equal(t, model.RoleUser, loaded.Turns[0].Role)
	require.NotNil(t, loaded.Turns[1].Actions)
	assert.Equal(t, "/static/audio/x.mp3", loaded.Turns[1].Actions.AudioURL)
	assert.Equal(t, model.KindImage, loaded.Turns[2].Kind)
	assert.Equal(t, "/static/img/cat.png", loaded.Turns[2].AttachmentURL)
}

func TestStore_SaveSameSessionOverwrites(t *testing.T) {
	store := newTestStore(t, 0)

	for i := 0; i < 3; i++ {
		_, err := store.Save(&StoredTranscript{SessionID: "session_1", Turns: sampleTurns()})
		require.NoError(t, err)
	}

	metas, err := store.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1)
}

func TestStore_LoadNotFound(t *testing.T) {
	store := newTestStore(t, 0)

	_, err := store.Load("missing")
	if !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("Load error = %v, want ErrTranscriptNotFound", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("Delete error = %v, want ErrTranscriptNotFound", err)
	}
	if _, err := store.LoadByIndex(0); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("LoadByIndex error = %v, want ErrTranscriptNotFound", err)
	}
}

func TestStore_ListSkipsCorrupted(t *testing.T) {
	store := newTestStore(t, 0)
	_, err := store.Save(&StoredTranscript{SessionID: "good", Turns: sampleTurns()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(store.BaseDir, "bad.json"), []byte("{"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(store.BaseDir, "notes.txt"), []byte("x"), 0600))

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "good", metas[0].ID)
	assert.Equal(t, 3, metas[0].TurnCount)
}

func TestStore_EnforceLimitKeepsNewest(t *testing.T) {
	store := newTestStore(t, 2)

	for _, sid := range []string{"s1", "s2", "s3"} {
		_, err := store.Save(&StoredTranscript{SessionID: sid, Turns: sampleTurns()})
		require.NoError(t, err)
		// UpdatedAt must differ for ordering.
		time.Sleep(5 * time.Millisecond)
	}

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "s3", metas[0].ID)
	assert.Equal(t, "s2", metas[1].ID)

	first, err := store.LoadByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, "s3", first.SessionID)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t, 0)
	id, err := store.Save(&StoredTranscript{SessionID: "s", Turns: sampleTurns()})
	require.NoError(t, err)

	require.NoError(t, store.Delete(id))
	_, err = store.Load(id)
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
}

func TestIDForSession(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"session_123", "session_123"},
		{"../etc/passwd", "___etc_passwd"},
		{"a b", "a_b"},
	}
	for _, tt := range tests {
		if got := idForSession(tt.in); got != tt.want {
			t.Errorf("idForSession(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := idForSession(""); !strings.HasPrefix(got, "transcript_") {
		t.Errorf("idForSession(\"\") = %q, want transcript_ prefix", got)
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize(nil); got != "New conversation" {
		t.Errorf("summarize(nil) = %q, want %q", got, "New conversation")
	}
	long := strings.Repeat("长", 80)
	got := summarize([]model.Turn{{Role: model.RoleUser, Text: long}})
	if n := len([]rune(got)); n != 50 {
		t.Errorf("summary length = %d, want 50", n)
	}
}

func TestFormatList(t *testing.T) {
	if got := FormatList(nil); got != "No saved transcripts." {
		t.Errorf("FormatList(nil) = %q", got)
	}
	out := FormatList([]TranscriptMeta{{ID: "session_1", Summary: "hello", TurnCount: 4, UpdatedAt: time.Now()}})
	assert.Contains(t, out, "session_1")
	assert.Contains(t, out, "hello")
}
