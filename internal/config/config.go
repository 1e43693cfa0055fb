// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/mimico-chat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// CurrentVersion is written into new config files.
const CurrentVersion = "1"

// Config represents the complete mimico configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	Server  ServerConfig  `toml:"server" json:"server"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Audio   AudioConfig   `toml:"audio" json:"audio"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// ServerConfig describes how to reach the chat service.
type ServerConfig struct {
	// BaseURL is the service root, e.g. https://mimico.example.com
	BaseURL string `toml:"base_url" json:"base_url"`

	// SessionCookie is the browser's "session" cookie after logging in.
	SessionCookie string `toml:"session_cookie" json:"session_cookie"`

	TimeoutSecs         int     `toml:"timeout_secs" json:"timeout_secs"`
	GenerateTimeoutSecs int     `toml:"generate_timeout_secs" json:"generate_timeout_secs"`
	RequestsPerSecond   float64 `toml:"requests_per_second" json:"requests_per_second"`
	Burst               int     `toml:"burst" json:"burst"`
}

// ChatConfig holds conversation behavior and its timings.
type ChatConfig struct {
	Mode string `toml:"mode" json:"mode"`

	// SessionID resumes an existing server-side session when set.
	SessionID string `toml:"session_id" json:"session_id"`

	// StreamIdleTimeoutSecs aborts a reply when no bytes arrive for this long.
	StreamIdleTimeoutSecs int `toml:"stream_idle_timeout_secs" json:"stream_idle_timeout_secs"`

	RecognitionNoticeMs int `toml:"recognition_notice_ms" json:"recognition_notice_ms"`
	SuccessAckMs        int `toml:"success_ack_ms" json:"success_ack_ms"`
	ResetDelayMs        int `toml:"reset_delay_ms" json:"reset_delay_ms"`
	FollowUpDelayMs     int `toml:"follow_up_delay_ms" json:"follow_up_delay_ms"`

	// ShareLocation sends Latitude/Longitude with every chat request.
	ShareLocation bool    `toml:"share_location" json:"share_location"`
	Latitude      float64 `toml:"latitude" json:"latitude"`
	Longitude     float64 `toml:"longitude" json:"longitude"`
}

// AudioConfig controls speech playback.
type AudioConfig struct {
	Enabled         bool   `toml:"enabled" json:"enabled"`
	PlayerCommand   string `toml:"player_command" json:"player_command"`
	OfflineAsset    string `toml:"offline_asset" json:"offline_asset"`
	CachePath       string `toml:"cache_path" json:"cache_path"`
	AutoplayOffline bool   `toml:"autoplay_offline" json:"autoplay_offline"`
}

// UIConfig contains terminal rendering settings.
type UIConfig struct {
	Theme    string `toml:"theme" json:"theme"`
	Markdown bool   `toml:"markdown" json:"markdown"`
	ShowHint bool   `toml:"show_hint" json:"show_hint"`
}

// StorageConfig controls the local transcript archive.
type StorageConfig struct {
	Dir            string `toml:"dir" json:"dir"`
	AutoSave       bool   `toml:"auto_save" json:"auto_save"`
	MaxTranscripts int    `toml:"max_transcripts" json:"max_transcripts"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	dir := defaultDir()
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			BaseURL:             "http://127.0.0.1:5000",
			TimeoutSecs:         30,
			GenerateTimeoutSecs: 180,
			RequestsPerSecond:   5,
			Burst:               5,
		},
		Chat: ChatConfig{
			Mode:                  "normal",
			StreamIdleTimeoutSecs: 60,
			RecognitionNoticeMs:   800,
			SuccessAckMs:          1500,
			ResetDelayMs:          880,
			FollowUpDelayMs:       500,
		},
		Audio: AudioConfig{
			Enabled:         true,
			PlayerCommand:   "ffplay -nodisp -autoexit -loglevel quiet",
			OfflineAsset:    "/static/audio/system/offline.mp3",
			CachePath:       filepath.Join(dir, "tts_cache.db"),
			AutoplayOffline: true,
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
			ShowHint: true,
		},
		Storage: StorageConfig{
			Dir:            filepath.Join(dir, "transcripts"),
			AutoSave:       true,
			MaxTranscripts: 100,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "mimico.log"),
		},
	}
}

// Duration accessors.

func (s ServerConfig) Timeout() time.Duration { return time.Duration(s.TimeoutSecs) * time.Second }
func (s ServerConfig) GenerateTimeout() time.Duration {
	return time.Duration(s.GenerateTimeoutSecs) * time.Second
}
func (c ChatConfig) StreamIdleTimeout() time.Duration {
	return time.Duration(c.StreamIdleTimeoutSecs) * time.Second
}
func (c ChatConfig) RecognitionNotice() time.Duration { return ms(c.RecognitionNoticeMs) }
func (c ChatConfig) SuccessAck() time.Duration        { return ms(c.SuccessAckMs) }
func (c ChatConfig) ResetDelay() time.Duration        { return ms(c.ResetDelayMs) }
func (c ChatConfig) FollowUpDelay() time.Duration     { return ms(c.FollowUpDelayMs) }

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

func defaultDir() string {
	dir, err := ConfigDir()
	if err != nil {
		return ".mimico"
	}
	return dir
}

// ConfigDir returns the mimico configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".mimico"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens a config file to 0600, since it holds the
// session cookie.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads ~/.mimico/config.toml when present, then applies environment
// overrides and validates. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPathTOML()
	if err != nil {
		return finish(Default())
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return finish(Default())
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML or JSON file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := ensureSecurePermissions(path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
	}

	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	def := Default()
	if c.Version == "" {
		c.Version = def.Version
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = def.Server.BaseURL
	}
	if c.Server.TimeoutSecs <= 0 {
		c.Server.TimeoutSecs = def.Server.TimeoutSecs
	}
	if c.Server.GenerateTimeoutSecs <= 0 {
		c.Server.GenerateTimeoutSecs = def.Server.GenerateTimeoutSecs
	}
	if c.Server.RequestsPerSecond <= 0 {
		c.Server.RequestsPerSecond = def.Server.RequestsPerSecond
	}
	if c.Server.Burst <= 0 {
		c.Server.Burst = def.Server.Burst
	}
	if c.Chat.Mode == "" {
		c.Chat.Mode = def.Chat.Mode
	}
	if c.Chat.StreamIdleTimeoutSecs <= 0 {
		c.Chat.StreamIdleTimeoutSecs = def.Chat.StreamIdleTimeoutSecs
	}
	if c.Audio.PlayerCommand == "" {
		c.Audio.PlayerCommand = def.Audio.PlayerCommand
	}
	if c.Audio.CachePath == "" {
		c.Audio.CachePath = def.Audio.CachePath
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = def.Storage.Dir
	}
	if c.Storage.MaxTranscripts <= 0 {
		c.Storage.MaxTranscripts = def.Storage.MaxTranscripts
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var b strings.Builder
	b.WriteString("# mimico configuration file\n")
	b.WriteString("# session_cookie is a login secret - keep this file private\n\n")
	if err := toml.NewEncoder(&b).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must be http(s)://host[:port]", c.Server.BaseURL),
		})
	}

	if c.Server.Burst > 100 {
		errs = append(errs, ValidationError{Field: "server.burst", Message: "must be at most 100"})
	}

	for _, f := range []struct {
		name  string
		value int
	}{
		{"chat.recognition_notice_ms", c.Chat.RecognitionNoticeMs},
		{"chat.success_ack_ms", c.Chat.SuccessAckMs},
		{"chat.reset_delay_ms", c.Chat.ResetDelayMs},
		{"chat.follow_up_delay_ms", c.Chat.FollowUpDelayMs},
	} {
		if f.value < 0 || f.value > 60000 {
			errs = append(errs, ValidationError{Field: f.name, Message: "must be between 0 and 60000"})
		}
	}

	if c.Chat.ShareLocation {
		if c.Chat.Latitude < -90 || c.Chat.Latitude > 90 {
			errs = append(errs, ValidationError{Field: "chat.latitude", Message: "must be between -90 and 90"})
		}
		if c.Chat.Longitude < -180 || c.Chat.Longitude > 180 {
			errs = append(errs, ValidationError{Field: "chat.longitude", Message: "must be between -180 and 180"})
		}
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto", "plain":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto, plain", c.UI.Theme),
		})
	}

	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level '%s'", c.Log.Level)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
//   - MIMICO_BASE_URL: overrides server.base_url
//   - MIMICO_SESSION: overrides server.session_cookie
//   - MIMICO_MODE: overrides chat.mode
//   - MIMICO_PLAYER: overrides audio.player_command
//   - MIMICO_NO_AUDIO: disables playback when 1 or true
//   - MIMICO_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MIMICO_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("MIMICO_SESSION"); v != "" {
		c.Server.SessionCookie = v
	}
	if v := os.Getenv("MIMICO_MODE"); v != "" {
		c.Chat.Mode = v
	}
	if v := os.Getenv("MIMICO_PLAYER"); v != "" {
		c.Audio.PlayerCommand = v
	}
	if v := os.Getenv("MIMICO_NO_AUDIO"); v != "" {
		if off, err := strconv.ParseBool(v); err == nil && off {
			c.Audio.Enabled = false
		}
	}
	if v := os.Getenv("MIMICO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Redacted returns a copy safe to print or log.
func (c *Config) Redacted() *Config {
	cp := c.Clone()
	if cp.Server.SessionCookie != "" {
		cp.Server.SessionCookie = "********"
	}
	return cp
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting clears the singleton between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
