// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package audio

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// TEXT KEYS
// =============================================================================

var (
	// stageDirection matches bracketed asides such as （笑） or [wink].
	stageDirection = regexp.MustCompile(`[（(【\[].*?[）)\]】]`)
	asterisks      = regexp.MustCompile(`\*+`)
)

// FilterText strips what the speech service never reads aloud.
func FilterText(text string) string {
	text = stageDirection.ReplaceAllString(strings.TrimSpace(text), "")
	text = asterisks.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Key returns the cache key for text: the first 16 hex digits of the MD5
// of the filtered text. Empty when nothing speakable remains.
func Key(text string) string {
	filtered := FilterText(text)
	if filtered == "" {
		return ""
	}
	sum := md5.Sum([]byte(filtered))
	return hex.EncodeToString(sum[:])[:16]
}

// =============================================================================
// CACHE
// =============================================================================

// ErrCacheClosed is returned after Close.
var ErrCacheClosed = errors.New("audio cache closed")

const cacheSchema = `
CREATE TABLE IF NOT EXISTS tts_cache (
	key        TEXT PRIMARY KEY,
	audio_url  TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// Cache persists synthesized audio URLs across runs.
type Cache struct {
	db *sql.DB
}

// DefaultCachePath returns ~/.mimico/tts_cache.db.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".mimico", "tts_cache.db")
	}
	return filepath.Join(home, ".mimico", "tts_cache.db")
}

// OpenCache opens or creates the cache database at path.
// Use ":memory:" for a throwaway cache.
func OpenCache(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	// SQLite only supports one writer at a time; one connection also keeps
	// an in-memory database alive for the cache's lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL", cacheSchema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	}
	return &Cache{db: db}, nil
}

// Get returns the cached URL for text.
func (c *Cache) Get(text string) (string, bool, error) {
	if c == nil || c.db == nil {
		return "", false, ErrCacheClosed
	}
	key := Key(text)
	if key == "" {
		return "", false, nil
	}

	var url string
	err := c.db.QueryRow("SELECT audio_url FROM tts_cache WHERE key = ?", key).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache lookup: %w", err)
	}
	return url, true, nil
}

// Put stores url for text unless an entry exists. It returns the URL that is
// cached afterwards, which is the earlier one when the key was taken.
func (c *Cache) Put(text, url string) (string, error) {
	if c == nil || c.db == nil {
		return "", ErrCacheClosed
	}
	key := Key(text)
	if key == "" || url == "" {
		return url, nil
	}

	_, err := c.db.Exec(
		"INSERT OR IGNORE INTO tts_cache (key, audio_url, text, created_at) VALUES (?, ?, ?, ?)",
		key, url, FilterText(text), time.Now().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("cache store: %w", err)
	}

	cached, _, err := c.Get(text)
	return cached, err
}

// Len returns the number of cached entries.
func (c *Cache) Len() (int, error) {
	if c == nil || c.db == nil {
		return 0, ErrCacheClosed
	}
	var n int
	err := c.db.QueryRow("SELECT COUNT(*) FROM tts_cache").Scan(&n)
	return n, err
}

// Close releases the database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
