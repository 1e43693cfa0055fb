// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for mimico.
//
// Configuration lives in ~/.mimico/config.toml (JSON is accepted when the
// path ends in .json). Values are layered: built-in defaults, then the file,
// then MIMICO_* environment variables.
//
// # Key Types
//
//   - Config: root configuration with server, chat, audio, ui, storage, log
//   - ValidationError / ValidateErrors: field-level validation failures
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client, err := api.NewClientWithConfig(&api.Config{
//	    BaseURL:       cfg.Server.BaseURL,
//	    SessionCookie: cfg.Server.SessionCookie,
//	})
//
// Follow edits while running:
//
//	go config.Watch(ctx, path, 0, func(cfg *config.Config, err error) { ... })
package config
