// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/mimico-chat/internal/api"
	"github.com/jeranaias/mimico-chat/internal/audio"
	mchat "github.com/jeranaias/mimico-chat/internal/chat"
	"github.com/jeranaias/mimico-chat/internal/clipboard"
	"github.com/jeranaias/mimico-chat/internal/config"
	"github.com/jeranaias/mimico-chat/internal/model"
	"github.com/jeranaias/mimico-chat/internal/session"
	"github.com/jeranaias/mimico-chat/internal/storage"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds everything a command needs, built from one config.
type app struct {
	cfg        *config.Config
	configPath string
	log        zerolog.Logger

	client *api.Client
	ctrl   *mchat.Controller
	cache  *audio.Cache
	store  *storage.Store

	closers []io.Closer
}

// appOptions selects the optional parts of an app.
type appOptions struct {
	// interactive routes logs to a file so they do not tear the screen.
	interactive bool

	// terminal receives OSC 52 clipboard sequences.
	terminal io.Writer
}

// loadConfig reads --config when given, else the default location, and
// applies the command-line overrides.
func loadConfig(flags *globalFlags) (*config.Config, string, error) {
	var (
		cfg  *config.Config
		path = flags.configPath
		err  error
	)
	if path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load()
		path, _ = config.ConfigPathTOML()
	}
	if err != nil {
		return nil, "", err
	}
	if flags.theme != "" {
		cfg.UI.Theme = flags.theme
	}
	if flags.noMarkdown {
		cfg.UI.Markdown = false
	}
	if flags.session != "" {
		cfg.Chat.SessionID = flags.session
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid flags: %w", err)
	}
	config.SetGlobal(cfg)
	return cfg, path, nil
}

// newApp wires the client, controller, audio and storage from config.
func newApp(flags *globalFlags, opts appOptions) (*app, error) {
	cfg, path, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, configPath: path}
	logger, logFile, err := setupLogging(cfg.Log, flags.verbose, opts.interactive)
	if err != nil {
		return nil, err
	}
	a.log = logger
	if logFile != nil {
		a.closers = append(a.closers, logFile)
	}

	a.client, err = api.NewClientWithConfig(clientConfig(cfg))
	if err != nil {
		a.Close()
		return nil, err
	}

	var player audio.Player = &audio.Recorder{Err: audio.ErrNoPlayer}
	if cfg.Audio.Enabled {
		p, err := audio.NewCommandPlayer(cfg.Audio.PlayerCommand)
		switch {
		case err != nil:
			a.log.Warn().Err(err).Msg("audio player disabled")
		case !p.Available():
			a.log.Warn().Str("command", cfg.Audio.PlayerCommand).Msg("audio player not found on PATH")
		default:
			player = p
		}
	}

	if cfg.Audio.CachePath != "" {
		cache, err := audio.OpenCache(cfg.Audio.CachePath)
		if err != nil {
			a.log.Warn().Err(err).Msg("tts cache disabled")
		} else {
			a.cache = cache
			a.closers = append(a.closers, cache)
		}
	}

	store, err := storage.NewStore(cfg.Storage.Dir, cfg.Storage.MaxTranscripts)
	if err != nil {
		a.log.Warn().Err(err).Msg("transcript archive disabled")
	} else {
		a.store = store
	}

	terminal := opts.terminal
	if terminal == nil {
		terminal = os.Stdout
	}

	sess := session.NewManagerWithID(cfg.Chat.SessionID, session.Config{Mode: cfg.Chat.Mode})
	tr := model.NewTranscript(model.TranscriptConfig{ResetDelay: cfg.Chat.ResetDelay()})

	a.ctrl, err = mchat.New(mchat.Options{
		Service:         a.client,
		Session:         sess,
		Transcript:      tr,
		Player:          player,
		Cache:           a.cache,
		Clipboard:       clipboard.New(clipboard.SystemBackend{}, terminal),
		OfflineAsset:    cfg.Audio.OfflineAsset,
		AutoplayOffline: cfg.Audio.AutoplayOffline,
		Location:        location(cfg.Chat),
		Timing:          timing(cfg.Chat),
		Logger:          a.log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.log.Debug().
		Str("base_url", cfg.Server.BaseURL).
		Str("session", sess.SessionID()).
		Str("mode", sess.Mode()).
		Bool("logged_in_cookie", cfg.Server.SessionCookie != "").
		Msg("client ready")
	return a, nil
}

// Close waits for background playback and releases resources.
func (a *app) Close() {
	if a.ctrl != nil {
		a.ctrl.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

// watchConfig applies config file edits to the running controller until
// ctx is done.
func (a *app) watchConfig(ctx context.Context) {
	if a.configPath == "" {
		return
	}
	go func() {
		err := config.Watch(ctx, a.configPath, config.DefaultWatchDebounce, func(cfg *config.Config, err error) {
			if err != nil {
				a.log.Warn().Err(err).Msg("config reload rejected")
				return
			}
			a.ctrl.Reconfigure(timing(cfg.Chat), cfg.Audio.AutoplayOffline, location(cfg.Chat))
			config.SetGlobal(cfg)
			a.log.Info().Msg("config reloaded")
		})
		if err != nil {
			a.log.Debug().Err(err).Msg("config watch stopped")
		}
	}()
}

func clientConfig(cfg *config.Config) *api.Config {
	c := api.DefaultConfig()
	c.BaseURL = cfg.Server.BaseURL
	c.SessionCookie = cfg.Server.SessionCookie
	c.Timeout = cfg.Server.Timeout()
	c.GenerateTimeout = cfg.Server.GenerateTimeout()
	c.RequestsPerSecond = cfg.Server.RequestsPerSecond
	c.Burst = cfg.Server.Burst
	c.UserAgent = "mimico-chat/" + Version
	return c
}

func timing(c config.ChatConfig) mchat.Timing {
	return mchat.Timing{
		RecognitionNotice: c.RecognitionNotice(),
		SuccessAck:        c.SuccessAck(),
		StreamIdle:        c.StreamIdleTimeout(),
		FollowUp:          c.FollowUpDelay(),
	}
}

func location(c config.ChatConfig) *api.Location {
	if !c.ShareLocation {
		return nil
	}
	return &api.Location{Latitude: c.Latitude, Longitude: c.Longitude}
}

// =============================================================================
// LOGGING
// =============================================================================

// setupLogging builds the process logger. Interactive sessions log JSON to
// the configured file; --verbose adds a console writer on stderr for
// non-interactive commands. The returned file, if any, must be closed.
func setupLogging(cfg config.LogConfig, verbose, interactive bool) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	if !interactive && verbose {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil, nil
	}
	if cfg.File == "" {
		return zerolog.Nop(), nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}
	return zerolog.New(f).Level(level).With().Timestamp().Logger(), f, nil
}

// =============================================================================
// ERROR MESSAGES
// =============================================================================

// userMessage maps errors to the text shown on the command line.
func userMessage(err error) string {
	switch {
	case errors.Is(err, mchat.ErrLoginRequired), errors.Is(err, api.ErrUnauthorized):
		return mchat.LoginPrompt + "\n  (set server.session_cookie in the config or MIMICO_SESSION)"
	case errors.Is(err, mchat.ErrInFlight):
		return "a reply is still streaming"
	case errors.Is(err, storage.ErrTranscriptNotFound):
		return "transcript not found (see: mimico transcripts list)"
	default:
		return api.ErrorMessage(err)
	}
}
