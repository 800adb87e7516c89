// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package today

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/habitrun/internal/gemini"
)

// Update handles messages and returns the updated model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.theme.SetSize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		m.input.Width = m.theme.ContentWidth() - 6
		return m, nil

	case tea.KeyMsg:
		if m.state == StateAdding {
			return m.handleInputKey(msg)
		}
		return m.handleKey(msg)

	case DayLoadedMsg:
		if msg.Err != nil {
			m.log.WithError(msg.Err).Warn("failed to load day")
			m.setError("Could not load the day: " + msg.Err.Error())
			if m.state == StateLoading {
				m.state = StateReady
			}
			return m, nil
		}
		m.rows = rowsOf(msg.Day)
		m.offline = msg.Offline
		if m.state == StateLoading {
			m.state = StateReady
		}
		m.clampCursor()
		return m, nil

	case ItemChangedMsg:
		if msg.Err != nil {
			m.setError(msg.Err.Error())
		} else if msg.Status != "" {
			m.setStatus(msg.Status)
		}
		return m, m.loadDay()

	case CoachResultMsg:
		m.busy = ""
		if msg.Err != nil {
			m.log.WithFields(logrus.Fields{
				"kind":  string(msg.Kind),
				"error": string(gemini.KindOf(msg.Err)),
			}).Warn("coach request failed")
			m.setError(coachError(msg.Err))
			return m, nil
		}
		m.coachKind = msg.Kind
		m.coachText = msg.Result.Text
		m.coachFallback = msg.Result.Fallback
		m.status = ""
		return m, nil

	case ConfigChangedMsg:
		return m.applyConfig(msg)

	case ConfigErrorMsg:
		m.log.WithError(msg.Err).Warn("config reload failed")
		m.setError("Config not reloaded: " + msg.Err.Error())
		return m, nil

	case spinner.TickMsg:
		// Ticking stops once the coach answers.
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if r, ok := m.selected(); ok {
			return m, m.toggle(r)
		}
		return m, nil

	case key.Matches(msg, m.keys.Add):
		m.state = StateAdding
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Remove):
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		if r.kind != rowTask {
			m.setError("Routines are removed with: habitrun routine disable")
			return m, nil
		}
		return m, m.removeTask(r)

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadDay()

	case key.Matches(msg, m.keys.Motivation):
		return m.startCoach(CoachMotivation)

	case key.Matches(msg, m.keys.Suggest):
		return m.startCoach(CoachSuggestions)
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.state = StateReady
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		label := strings.TrimSpace(m.input.Value())
		m.state = StateReady
		m.input.Blur()
		if label == "" {
			return m, nil
		}
		return m, m.addTask(label)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startCoach(kind CoachKind) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	if m.deps.Coach == nil {
		m.setError("Coaching is not available")
		return m, nil
	}
	m.busy = kind
	return m, tea.Batch(m.askCoach(kind), m.spinner.Tick)
}

// =============================================================================
// CONFIG
// =============================================================================

func (m Model) applyConfig(msg ConfigChangedMsg) (tea.Model, tea.Cmd) {
	cfg := msg.Config
	if cfg == nil {
		return m, nil
	}
	if m.deps.Settings != nil {
		m.deps.Settings.SetDefaults(cfg.Gemini.APIKey, cfg.Gemini.Model)
	}
	if m.deps.Monitor != nil {
		m.deps.Monitor.SetForced(cfg.Offline.Forced)
	}
	if cfg.Language != "" {
		m.deps.Language = cfg.Language
	}
	m.log.Info("configuration reloaded")
	m.setStatus("Configuration reloaded")
	return m, m.loadDay()
}

// =============================================================================
// HELPERS
// =============================================================================

func (m Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func coachError(err error) string {
	switch gemini.KindOf(err) {
	case gemini.KindAuthMissing:
		return "No API key saved. Run: habitrun setup"
	case gemini.KindNetwork:
		return "The assistant could not be reached"
	case gemini.KindSafetyBlocked:
		return "The request was blocked by the safety filter"
	}
	return "Coach request failed: " + err.Error()
}
