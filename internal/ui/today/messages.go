// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package today

import (
	"github.com/jeranaias/habitrun/internal/coach"
	"github.com/jeranaias/habitrun/internal/config"
	"github.com/jeranaias/habitrun/internal/tracker"
)

// =============================================================================
// DATA MESSAGES
// =============================================================================

// DayLoadedMsg carries a freshly read day. Offline is sampled in the same
// command so the view never blocks on a probe.
type DayLoadedMsg struct {
	Day     tracker.Day
	Offline bool
	Err     error
}

// ItemChangedMsg reports a toggle, add or remove. The day is reloaded
// afterwards either way.
type ItemChangedMsg struct {
	Status string
	Err    error
}

// =============================================================================
// COACH MESSAGES
// =============================================================================

// CoachKind names the coaching text shown in the panel.
type CoachKind string

const (
	CoachMotivation  CoachKind = "motivation"
	CoachSuggestions CoachKind = "suggestions"
)

// CoachResultMsg carries a generated or template text.
type CoachResultMsg struct {
	Kind   CoachKind
	Result coach.Result
	Err    error
}

// =============================================================================
// CONFIG MESSAGES
// =============================================================================

// ConfigChangedMsg is sent when the config file is rewritten on disk.
type ConfigChangedMsg struct {
	Config *config.Config
}

// ConfigErrorMsg reports a config reload or watcher failure.
type ConfigErrorMsg struct {
	Err error
}
