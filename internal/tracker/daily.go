// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/jeranaias/habitrun/internal/dayplan"
	"github.com/jeranaias/habitrun/internal/store"
)

// ErrTaskNotFound is returned when a daily task id is not in the entry.
var ErrTaskNotFound = errors.New("daily task not found")

// Completion records whether a routine task was done on a day.
type Completion struct {
	ID   int64 `json:"id" yaml:"id"`
	Done bool  `json:"done" yaml:"done"`
}

// DailyTask is a one-off task on a day.
type DailyTask struct {
	ID           string `json:"id" yaml:"id"`
	Label        string `json:"label" yaml:"label"`
	Done         bool   `json:"done" yaml:"done"`
	Source       string `json:"source" yaml:"source"`
	WeeklyGoalID *int64 `json:"weeklyGoalId" yaml:"weeklyGoalId"`
}

// DailyEntry holds everything recorded for one profile on one date.
type DailyEntry struct {
	Key                string       `json:"key" yaml:"key"`
	Profile            string       `json:"profile" yaml:"profile"`
	Date               string       `json:"date" yaml:"date"`
	RoutineCompletions []Completion `json:"routineCompletions" yaml:"routineCompletions"`
	Tasks              []DailyTask  `json:"tasks" yaml:"tasks"`
}

func (e DailyEntry) owner() string { return e.Profile }

// TaskOptions describe a new daily task. Empty fields take defaults:
// SourceAdhoc, no weekly goal, today.
type TaskOptions struct {
	Source       string
	WeeklyGoalID *int64
	Date         string
}

// LinkedTask is a daily task found through its weekly goal.
type LinkedTask struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Done   bool   `json:"done"`
	Date   string `json:"date"`
	Source string `json:"source"`
}

// RoutineStatus pairs an active routine task with its completion on a day.
type RoutineStatus struct {
	Routine RoutineTask
	Done    bool
}

// Day is the view of one date: active routines and that day's tasks.
type Day struct {
	Date     string
	Routines []RoutineStatus
	Tasks    []DailyTask
}

// DailyKey is the record key of a profile's entry for date.
func DailyKey(profile, date string) string {
	return profile + "_" + date
}

// DailyEntry returns the entry for date without creating it. The second
// result is false when nothing was recorded that day.
func (t *Tracker) DailyEntry(ctx context.Context, date string) (DailyEntry, bool, error) {
	date, err := t.dateOr(date)
	if err != nil {
		return DailyEntry{}, false, err
	}

	var e DailyEntry
	err = t.store.Get(ctx, store.DailyEntries, DailyKey(t.profile, date), &e)
	if errors.Is(err, store.ErrNotFound) {
		return t.emptyEntry(date), false, nil
	}
	if err != nil {
		return DailyEntry{}, false, err
	}
	return e, true, nil
}

// Day assembles the view of date: active routines with their completion
// and the day's tasks.
func (t *Tracker) Day(ctx context.Context, date string) (Day, error) {
	entry, _, err := t.DailyEntry(ctx, date)
	if err != nil {
		return Day{}, err
	}
	routines, err := t.Routines(ctx, false)
	if err != nil {
		return Day{}, err
	}

	done := make(map[int64]bool, len(entry.RoutineCompletions))
	for _, c := range entry.RoutineCompletions {
		done[c.ID] = c.Done
	}
	day := Day{Date: entry.Date, Tasks: entry.Tasks}
	for _, r := range routines {
		day.Routines = append(day.Routines, RoutineStatus{Routine: r, Done: done[r.ID]})
	}
	return day, nil
}

// TaskLabels lists the labels of the active routines and of date's tasks,
// as context for coaching and planning prompts.
func (t *Tracker) TaskLabels(ctx context.Context, date string) ([]string, error) {
	day, err := t.Day(ctx, date)
	if err != nil {
		return nil, err
	}
	routines := make([]RoutineTask, 0, len(day.Routines))
	for _, r := range day.Routines {
		routines = append(routines, r.Routine)
	}
	labels := labelsOf(routines)
	for _, task := range day.Tasks {
		labels = append(labels, task.Label)
	}
	return labels, nil
}

// AddDailyTask appends a task to a day's entry, creating the entry if
// needed.
func (t *Tracker) AddDailyTask(ctx context.Context, label string, opts TaskOptions) (DailyTask, error) {
	label, err := cleanLabel(label)
	if err != nil {
		return DailyTask{}, err
	}
	task := DailyTask{
		ID:           "t" + uuid.NewString(),
		Label:        label,
		Source:       opts.Source,
		WeeklyGoalID: opts.WeeklyGoalID,
	}
	if task.Source == "" {
		task.Source = SourceAdhoc
	}

	err = t.updateEntry(ctx, opts.Date, func(e *DailyEntry) error {
		e.Tasks = append(e.Tasks, task)
		return nil
	})
	if err != nil {
		return DailyTask{}, err
	}
	return task, nil
}

// AddPlan stores an approved day plan as AI tasks on the plan's date. It
// returns the tasks added.
func (t *Tracker) AddPlan(ctx context.Context, plan dayplan.Plan) ([]DailyTask, error) {
	added := make([]DailyTask, 0, len(plan.Tasks))
	err := t.updateEntry(ctx, plan.Date, func(e *DailyEntry) error {
		for _, pt := range plan.Tasks {
			label := dayplan.ComposeLabel(pt)
			if label == "" {
				continue
			}
			task := DailyTask{ID: "t" + uuid.NewString(), Label: label, Source: SourceAI}
			e.Tasks = append(e.Tasks, task)
			added = append(added, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.log.WithField("count", len(added)).Info("Day plan approved")
	return added, nil
}

// SetDailyTaskDone marks a task done or not done.
func (t *Tracker) SetDailyTaskDone(ctx context.Context, date, taskID string, done bool) (DailyTask, error) {
	var task DailyTask
	err := t.updateEntry(ctx, date, func(e *DailyEntry) error {
		i := taskIndex(e.Tasks, taskID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		e.Tasks[i].Done = done
		task = e.Tasks[i]
		return nil
	})
	return task, err
}

// ToggleDailyTask flips a task's done state.
func (t *Tracker) ToggleDailyTask(ctx context.Context, date, taskID string) (DailyTask, error) {
	var task DailyTask
	err := t.updateEntry(ctx, date, func(e *DailyEntry) error {
		i := taskIndex(e.Tasks, taskID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		e.Tasks[i].Done = !e.Tasks[i].Done
		task = e.Tasks[i]
		return nil
	})
	return task, err
}

// RemoveDailyTask deletes a task from a day's entry.
func (t *Tracker) RemoveDailyTask(ctx context.Context, date, taskID string) error {
	return t.updateEntry(ctx, date, func(e *DailyEntry) error {
		i := taskIndex(e.Tasks, taskID)
		if i < 0 {
			return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		e.Tasks = slices.Delete(e.Tasks, i, i+1)
		return nil
	})
}

// LinkedTasks lists the daily tasks of every day that point at a weekly
// goal, oldest date first.
func (t *Tracker) LinkedTasks(ctx context.Context, weeklyGoalID int64) ([]LinkedTask, error) {
	entries, err := listOwned[DailyEntry](ctx, t, store.DailyEntries)
	if err != nil {
		return nil, err
	}

	var linked []LinkedTask
	for _, e := range entries {
		for _, task := range e.Tasks {
			if task.WeeklyGoalID == nil || *task.WeeklyGoalID != weeklyGoalID {
				continue
			}
			linked = append(linked, LinkedTask{
				ID:     task.ID,
				Label:  task.Label,
				Done:   task.Done,
				Date:   e.Date,
				Source: task.Source,
			})
		}
	}
	slices.SortStableFunc(linked, func(a, b LinkedTask) int {
		return strings.Compare(a.Date, b.Date)
	})
	return linked, nil
}

// updateEntry loads (or starts) the entry for date, applies fn and saves it.
// Nothing is written when fn fails.
func (t *Tracker) updateEntry(ctx context.Context, date string, fn func(e *DailyEntry) error) error {
	entry, _, err := t.DailyEntry(ctx, date)
	if err != nil {
		return err
	}
	if err := fn(&entry); err != nil {
		return err
	}
	return t.store.Put(ctx, store.DailyEntries, entry.Key, entry)
}

func (t *Tracker) emptyEntry(date string) DailyEntry {
	return DailyEntry{
		Key:                DailyKey(t.profile, date),
		Profile:            t.profile,
		Date:               date,
		RoutineCompletions: []Completion{},
		Tasks:              []DailyTask{},
	}
}

func taskIndex(tasks []DailyTask, id string) int {
	return slices.IndexFunc(tasks, func(task DailyTask) bool { return task.ID == id })
}
