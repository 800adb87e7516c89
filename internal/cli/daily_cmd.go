// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// daily_cmd.go - Daily checklist commands.
//
// USAGE:
//
//	habitrun daily [show] [--date YYYY-MM-DD]
//	habitrun daily add <label...> [--date YYYY-MM-DD] [--weekly ID]
//	habitrun daily toggle <task-id> [--date YYYY-MM-DD]
//	habitrun daily remove <task-id> [--date YYYY-MM-DD]

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/habitrun/internal/tracker"
)

const dailyUsage = "[show|add <label>|toggle <task-id>|remove <task-id>] [--date YYYY-MM-DD]"

// HandleDaily handles "habitrun daily".
func (a *App) HandleDaily(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json")
	date := p.Flag("date")

	if _, err := a.Tracker.EnsureRoutineDefaults(ctx); err != nil {
		return err
	}

	switch p.Subcommand() {
	case "", "show", "list", "ls":
		day, err := a.Tracker.Day(ctx, date)
		if err != nil {
			return err
		}
		return a.emit(p, "daily", day, func() { a.printDay(day) })

	case "add", "new":
		opts := tracker.TaskOptions{Source: tracker.SourceAdhoc, Date: date}
		if raw := p.Flag("weekly"); raw != "" {
			id, err := ParseID(raw, "weekly goal id")
			if err != nil {
				return err
			}
			opts.WeeklyGoalID = &id
			opts.Source = tracker.SourceWeekly
		}
		task, err := a.Tracker.AddDailyTask(ctx, JoinPositionalArgs(p, 1), opts)
		if err != nil {
			return err
		}
		return a.emit(p, "daily add", task, func() {
			a.success("Task added (%s)", task.ID)
		})

	case "toggle", "done":
		task, err := a.Tracker.ToggleDailyTask(ctx, date, p.Positional(1))
		if err != nil {
			return err
		}
		return a.emit(p, "daily toggle", task, func() {
			a.printf("%s %s\n", RenderCheck(task.Done), task.Label)
		})

	case "remove", "rm", "delete":
		id := p.Positional(1)
		if err := a.Tracker.RemoveDailyTask(ctx, date, id); err != nil {
			return err
		}
		return a.emit(p, "daily remove", map[string]string{"deleted": id}, func() {
			a.success("Task %s removed", id)
		})
	}
	return usage("daily", dailyUsage)
}

func (a *App) printDay(day tracker.Day) {
	a.println(TitleStyle.Render("Today: " + day.Date))
	a.println(RenderSeparator())

	a.println(SectionStyle.Render("Routine"))
	if len(day.Routines) == 0 {
		a.println(DimStyle.Render("  No active routine tasks."))
	}
	for _, r := range day.Routines {
		a.printf("  %s %s %s\n", RenderCheck(r.Done), DimStyle.Render(fmt.Sprintf("#%-4d", r.Routine.ID)), r.Routine.Label)
	}

	a.println(SectionStyle.Render("Tasks"))
	if len(day.Tasks) == 0 {
		a.println(DimStyle.Render("  No tasks for this day. Add one with: habitrun daily add <label>"))
	}
	for _, t := range day.Tasks {
		source := ""
		if t.Source != "" && t.Source != tracker.SourceAdhoc {
			source = DimStyle.Render("  [" + t.Source + "]")
		}
		a.printf("  %s %s %s%s\n", RenderCheck(t.Done), DimStyle.Render(t.ID), t.Label, source)
	}
}
