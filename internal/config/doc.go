// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for habitrun.
//
// Supports both TOML and JSON configuration formats, with defaults,
// environment variable overrides, .env files, validation and a file watcher.
//
// # Key Types
//
//   - Config: complete configuration
//   - GeminiConfig: generation API endpoint, default model and key fallback
//   - QueueConfig: prompt queue timeout and pacing
//   - OfflineConfig: forced offline mode and reachability probe
//   - LabelConfig: label scanner image and parsing options
//   - Watcher: reloads the file on change
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (HABITRUN_*, GEMINI_API_KEY), including values
//     from ./.env and ~/.habitrun/.env
//   - ~/.habitrun/config.toml
//   - ~/.habitrun/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Gemini.Model)
package config
