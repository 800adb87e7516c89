// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/habitrun/internal/store"
)

// Task sources.
const (
	SourceManual = "manual"
	SourceWeekly = "weekly"
	SourceAdhoc  = "adhoc"
	SourceAI     = "ai"
)

// DefaultRoutines seed an empty routine list.
var DefaultRoutines = []string{
	"Morning Walk (10 min)",
	"Protein Breakfast",
	"3L Water",
	"Training / Stability",
	"Quran / Meditation",
	"Collagen + Vitamin C",
	"Sleep before 12 AM",
}

// RoutineTask is a task repeated every day while active.
type RoutineTask struct {
	ID           int64  `json:"id" yaml:"id"`
	Profile      string `json:"profile" yaml:"profile"`
	Label        string `json:"label" yaml:"label"`
	Active       bool   `json:"active" yaml:"active"`
	WeeklyGoalID *int64 `json:"weeklyGoalId" yaml:"weeklyGoalId"`
	Source       string `json:"source" yaml:"source"`
}

func (r RoutineTask) owner() string { return r.Profile }

// RoutineUpdate lists the fields to change; nil fields are left alone.
type RoutineUpdate struct {
	Label  *string
	Active *bool
}

// EnsureRoutineDefaults seeds DefaultRoutines when the profile has no
// routine tasks at all, active or not. It reports whether it seeded.
func (t *Tracker) EnsureRoutineDefaults(ctx context.Context) (bool, error) {
	existing, err := t.Routines(ctx, true)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	for _, label := range DefaultRoutines {
		if _, err := t.CreateRoutine(ctx, label, nil, SourceManual); err != nil {
			return false, err
		}
	}
	t.log.WithField("count", len(DefaultRoutines)).Info("Seeded default routine tasks")
	return true, nil
}

// Routines lists the profile's routine tasks in creation order. Inactive
// tasks are skipped unless includeInactive is set.
func (t *Tracker) Routines(ctx context.Context, includeInactive bool) ([]RoutineTask, error) {
	tasks, err := listOwned[RoutineTask](ctx, t, store.RoutineTasks)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return tasks, nil
	}
	active := tasks[:0]
	for _, r := range tasks {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}

// RoutinesFor lists every routine task linked to a weekly goal.
func (t *Tracker) RoutinesFor(ctx context.Context, weeklyGoalID int64) ([]RoutineTask, error) {
	tasks, err := t.Routines(ctx, true)
	if err != nil {
		return nil, err
	}
	out := tasks[:0]
	for _, r := range tasks {
		if r.WeeklyGoalID != nil && *r.WeeklyGoalID == weeklyGoalID {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateRoutine stores a new active routine task. An empty source means
// SourceManual.
func (t *Tracker) CreateRoutine(ctx context.Context, label string, weeklyGoalID *int64, source string) (RoutineTask, error) {
	label, err := cleanLabel(label)
	if err != nil {
		return RoutineTask{}, err
	}
	if source == "" {
		source = SourceManual
	}

	var task RoutineTask
	_, err = t.store.Insert(ctx, store.RoutineTasks, func(id int64) (any, error) {
		task = RoutineTask{
			ID:           id,
			Profile:      t.profile,
			Label:        label,
			Active:       true,
			WeeklyGoalID: weeklyGoalID,
			Source:       source,
		}
		return task, nil
	})
	if err != nil {
		return RoutineTask{}, fmt.Errorf("failed to create routine task: %w", err)
	}
	return task, nil
}

// Routine returns one routine task.
func (t *Tracker) Routine(ctx context.Context, id int64) (RoutineTask, error) {
	return getOwned[RoutineTask](ctx, t, store.RoutineTasks, id)
}

// UpdateRoutine renames or (de)activates a routine task.
func (t *Tracker) UpdateRoutine(ctx context.Context, id int64, upd RoutineUpdate) (RoutineTask, error) {
	task, err := t.Routine(ctx, id)
	if err != nil {
		return RoutineTask{}, err
	}
	if upd.Label != nil {
		label, err := cleanLabel(*upd.Label)
		if err != nil {
			return RoutineTask{}, err
		}
		task.Label = label
	}
	if upd.Active != nil {
		task.Active = *upd.Active
	}
	if err := t.store.Put(ctx, store.RoutineTasks, store.IntKey(id), task); err != nil {
		return RoutineTask{}, err
	}
	return task, nil
}

// DeleteRoutine removes a routine task. Completions already recorded in
// daily entries are left in place.
func (t *Tracker) DeleteRoutine(ctx context.Context, id int64) error {
	if _, err := t.Routine(ctx, id); err != nil {
		return err
	}
	return t.store.Delete(ctx, store.RoutineTasks, store.IntKey(id))
}

// SetRoutineDone records whether a routine task was done on date. An empty
// date means today.
func (t *Tracker) SetRoutineDone(ctx context.Context, routineID int64, date string, done bool) error {
	if _, err := t.Routine(ctx, routineID); err != nil {
		return err
	}
	return t.updateEntry(ctx, date, func(e *DailyEntry) error {
		for i := range e.RoutineCompletions {
			if e.RoutineCompletions[i].ID == routineID {
				e.RoutineCompletions[i].Done = done
				return nil
			}
		}
		e.RoutineCompletions = append(e.RoutineCompletions, Completion{ID: routineID, Done: done})
		return nil
	})
}

// AddWeeklyTask turns a weekly goal into a task: a routine task when
// asRoutine is set, otherwise a daily task on date.
func (t *Tracker) AddWeeklyTask(ctx context.Context, weeklyGoalID int64, label string, asRoutine bool, date string) error {
	if _, err := t.WeeklyGoal(ctx, weeklyGoalID); err != nil {
		return err
	}
	id := weeklyGoalID
	if asRoutine {
		_, err := t.CreateRoutine(ctx, label, &id, SourceWeekly)
		return err
	}
	_, err := t.AddDailyTask(ctx, label, TaskOptions{Source: SourceWeekly, WeeklyGoalID: &id, Date: date})
	return err
}

func labelsOf(routines []RoutineTask) []string {
	out := make([]string, 0, len(routines))
	for _, r := range routines {
		out = append(out, strings.TrimSpace(r.Label))
	}
	return out
}
