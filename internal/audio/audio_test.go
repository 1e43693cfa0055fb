// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEXT KEY TESTS
// =============================================================================

func TestFilterText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"你好呀（笑）", "你好呀"},
		{"*伸懒腰* 早上好", "伸懒腰 早上好"},
		{"[wink] hi (aside) there 【注】", "hi  there"},
		{"  plain  ", "plain"},
		{"（全部都是动作）", ""},
	}
	for _, tt := range tests {
		if got := FilterText(tt.in); got != tt.want {
			t.Errorf("FilterText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKey(t *testing.T) {
	k := Key("你好呀（笑）")
	assert.Len(t, k, 16)
	assert.Equal(t, k, Key("你好呀"), "filtered text must share a key")
	assert.NotEqual(t, k, Key("再见"))
	assert.Empty(t, Key("（笑）"))
}

// =============================================================================
// CACHE TESTS
// =============================================================================

func TestCache_PutGet(t *testing.T) {
	c, err := OpenCache(filepath.Join(t.TempDir(), "tts.db"))
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get("你好")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := c.Put("你好", "/static/tts/a.mp3")
	require.NoError(t, err)
	assert.Equal(t, "/static/tts/a.mp3", got)

	got, err = c.Put("你好", "/static/tts/b.mp3")
	require.NoError(t, err)
	assert.Equal(t, "/static/tts/a.mp3", got, "first writer wins")

	url, ok, err := c.Get("你好（笑）")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/static/tts/a.mp3", url)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCache_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tts.db")

	c, err := OpenCache(path)
	require.NoError(t, err)
	_, err = c.Put("晚安", "/static/tts/n.mp3")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = OpenCache(path)
	require.NoError(t, err)
	defer c.Close()

	url, ok, err := c.Get("晚安")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/static/tts/n.mp3", url)
}

func TestCache_Closed(t *testing.T) {
	c, err := OpenCache(":memory:")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, _, err = c.Get("x")
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.NoError(t, c.Close())
}

// =============================================================================
// PLAYER TESTS
// =============================================================================

func TestNewCommandPlayer(t *testing.T) {
	_, err := NewCommandPlayer("   ")
	assert.ErrorIs(t, err, ErrNoPlayer)

	p, err := NewCommandPlayer(DefaultPlayerCommand)
	require.NoError(t, err)
	assert.Equal(t, "ffplay", p.name)
	assert.Equal(t, []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}, p.args)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Play(context.Background(), "a"))
	r.Err = errors.New("device busy")
	assert.Error(t, r.Play(context.Background(), "b"))
	assert.Equal(t, []string{"a", "b"}, r.Played())
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "offline.mp3")
	require.NoError(t, os.WriteFile(local, []byte("x"), 0644))

	resolver := func(s string) string { return "https://host" + s }

	assert.Equal(t, local, Resolve(local, resolver))
	assert.Equal(t, "https://host/static/audio/offline.mp3", Resolve("/static/audio/offline.mp3", resolver))
	assert.Equal(t, "", Resolve("", resolver))
}
