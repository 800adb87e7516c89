// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package today is the full-screen checklist of one day: active routines
// and the day's tasks, with coaching text on demand.
package today

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/habitrun/internal/coach"
	"github.com/jeranaias/habitrun/internal/logging"
	"github.com/jeranaias/habitrun/internal/offline"
	"github.com/jeranaias/habitrun/internal/settings"
	"github.com/jeranaias/habitrun/internal/tracker"
	"github.com/jeranaias/habitrun/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State represents the current mode of the view.
type State int

const (
	StateLoading State = iota
	StateReady
	StateAdding
)

type rowKind int

const (
	rowRoutine rowKind = iota
	rowTask
)

// row is one checklist line.
type row struct {
	kind      rowKind
	routineID int64
	taskID    string
	label     string
	source    string
	done      bool
}

// =============================================================================
// MODEL
// =============================================================================

// Deps are the services the view works with. Settings and Monitor are
// optional; without them config changes only update the language.
type Deps struct {
	Tracker  *tracker.Tracker
	Coach    *coach.Coach
	Settings *settings.Settings
	Monitor  *offline.Monitor
	Language string
	Date     string
	Logger   *logrus.Logger
}

// Model is the bubbletea model of the today view.
type Model struct {
	ctx  context.Context
	deps Deps
	log  *logrus.Entry

	theme   *styles.Theme
	keys    KeyMap
	help    help.Model
	input   textinput.Model
	spinner spinner.Model

	state   State
	date    string
	rows    []row
	cursor  int
	offline bool

	busy          CoachKind
	coachKind     CoachKind
	coachText     string
	coachFallback bool

	status    string
	statusErr bool
}

// New creates the view for deps.Date, or today when empty.
func New(ctx context.Context, theme *styles.Theme, deps Deps) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	if theme == nil {
		theme = styles.NewTheme()
	}
	date := deps.Date
	if date == "" {
		date = deps.Tracker.Today()
	}

	in := textinput.New()
	in.Placeholder = "New task for today"
	in.CharLimit = 200
	in.Prompt = "> "

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	return Model{
		ctx:     ctx,
		deps:    deps,
		log:     logging.For(deps.Logger, "today"),
		theme:   theme,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		input:   in,
		spinner: sp,
		state:   StateLoading,
		date:    date,
	}
}

// Init loads the day.
func (m Model) Init() tea.Cmd {
	return m.loadDay()
}

// State returns the current mode.
func (m Model) State() State { return m.state }

// Date returns the date shown.
func (m Model) Date() string { return m.date }

// Cursor returns the index of the selected row.
func (m Model) Cursor() int { return m.cursor }

// Progress returns the number of done rows and the total.
func (m Model) Progress() (done, total int) {
	for _, r := range m.rows {
		if r.done {
			done++
		}
	}
	return done, len(m.rows)
}

// CoachText returns the text in the coach panel.
func (m Model) CoachText() string { return m.coachText }

// Status returns the status line message.
func (m Model) Status() string { return m.status }

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadDay() tea.Cmd {
	ctx, tr, mon, date := m.ctx, m.deps.Tracker, m.deps.Monitor, m.date
	return func() tea.Msg {
		day, err := tr.Day(ctx, date)
		msg := DayLoadedMsg{Day: day, Err: err}
		if mon != nil {
			msg.Offline = mon.IsOffline()
		}
		return msg
	}
}

func (m Model) toggle(r row) tea.Cmd {
	ctx, tr, date := m.ctx, m.deps.Tracker, m.date
	return func() tea.Msg {
		var err error
		switch r.kind {
		case rowRoutine:
			err = tr.SetRoutineDone(ctx, r.routineID, date, !r.done)
		case rowTask:
			_, err = tr.ToggleDailyTask(ctx, date, r.taskID)
		}
		return ItemChangedMsg{Err: err}
	}
}

func (m Model) addTask(label string) tea.Cmd {
	ctx, tr, date := m.ctx, m.deps.Tracker, m.date
	return func() tea.Msg {
		task, err := tr.AddDailyTask(ctx, label, tracker.TaskOptions{Date: date})
		if err != nil {
			return ItemChangedMsg{Err: err}
		}
		return ItemChangedMsg{Status: "Added " + task.Label}
	}
}

func (m Model) removeTask(r row) tea.Cmd {
	ctx, tr, date := m.ctx, m.deps.Tracker, m.date
	return func() tea.Msg {
		if err := tr.RemoveDailyTask(ctx, date, r.taskID); err != nil {
			return ItemChangedMsg{Err: err}
		}
		return ItemChangedMsg{Status: "Removed " + r.label}
	}
}

func (m Model) askCoach(kind CoachKind) tea.Cmd {
	ctx, c, lang, date := m.ctx, m.deps.Coach, m.deps.Language, m.date
	open := m.openLabels()
	return func() tea.Msg {
		var (
			res coach.Result
			err error
		)
		switch kind {
		case CoachSuggestions:
			res, err = c.DailySuggestions(ctx, coach.DailyInput{Date: date, Tasks: open, Language: lang})
		default:
			res, err = c.Motivation(ctx, coach.MotivationInput{Tasks: open, Language: lang})
		}
		return CoachResultMsg{Kind: kind, Result: res, Err: err}
	}
}

// openLabels lists the labels not done yet.
func (m Model) openLabels() []string {
	var labels []string
	for _, r := range m.rows {
		if !r.done {
			labels = append(labels, r.label)
		}
	}
	return labels
}

// rowsOf flattens a day into checklist rows, routines first.
func rowsOf(day tracker.Day) []row {
	rows := make([]row, 0, len(day.Routines)+len(day.Tasks))
	for _, rs := range day.Routines {
		rows = append(rows, row{
			kind:      rowRoutine,
			routineID: rs.Routine.ID,
			label:     rs.Routine.Label,
			source:    rs.Routine.Source,
			done:      rs.Done,
		})
	}
	for _, t := range day.Tasks {
		rows = append(rows, row{
			kind:   rowTask,
			taskID: t.ID,
			label:  t.Label,
			source: t.Source,
			done:   t.Done,
		})
	}
	return rows
}
