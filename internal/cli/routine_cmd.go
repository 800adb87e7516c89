// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// routine_cmd.go - Routine task commands.
//
// USAGE:
//
//	habitrun routine [list] [--all]
//	habitrun routine add <label...> [--weekly ID]
//	habitrun routine rename <id> <label...>
//	habitrun routine enable|disable <id>
//	habitrun routine delete <id>
//	habitrun routine done|undo <id> [--date YYYY-MM-DD]

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/habitrun/internal/tracker"
)

const routineUsage = "[list [--all]|add <label>|rename <id> <label>|enable <id>|disable <id>|delete <id>|done <id>|undo <id>]"

// HandleRoutine handles "habitrun routine".
func (a *App) HandleRoutine(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json", "all")

	if _, err := a.Tracker.EnsureRoutineDefaults(ctx); err != nil {
		return err
	}

	switch p.Subcommand() {
	case "", "list", "ls":
		return a.listRoutines(ctx, p)

	case "add", "new":
		var weekly *int64
		if raw := p.Flag("weekly"); raw != "" {
			id, err := ParseID(raw, "weekly goal id")
			if err != nil {
				return err
			}
			weekly = &id
		}
		source := tracker.SourceManual
		if weekly != nil {
			source = tracker.SourceWeekly
		}
		task, err := a.Tracker.CreateRoutine(ctx, JoinPositionalArgs(p, 1), weekly, source)
		if err != nil {
			return err
		}
		return a.emit(p, "routine add", task, func() {
			a.success("Routine task #%d added", task.ID)
		})

	case "rename":
		id, err := ParseID(p.Positional(1), "routine id")
		if err != nil {
			return err
		}
		text := JoinPositionalArgs(p, 2)
		task, err := a.Tracker.UpdateRoutine(ctx, id, tracker.RoutineUpdate{Label: &text})
		if err != nil {
			return err
		}
		return a.emit(p, "routine rename", task, func() {
			a.success("Routine task #%d renamed", task.ID)
		})

	case "enable", "disable":
		id, err := ParseID(p.Positional(1), "routine id")
		if err != nil {
			return err
		}
		active := p.Subcommand() == "enable"
		task, err := a.Tracker.UpdateRoutine(ctx, id, tracker.RoutineUpdate{Active: &active})
		if err != nil {
			return err
		}
		return a.emit(p, "routine "+p.Subcommand(), task, func() {
			a.success("Routine task #%d %sd", task.ID, p.Subcommand())
		})

	case "delete", "rm":
		id, err := ParseID(p.Positional(1), "routine id")
		if err != nil {
			return err
		}
		if err := a.Tracker.DeleteRoutine(ctx, id); err != nil {
			return err
		}
		return a.emit(p, "routine delete", map[string]int64{"deleted": id}, func() {
			a.success("Routine task #%d deleted", id)
		})

	case "done", "undo":
		id, err := ParseID(p.Positional(1), "routine id")
		if err != nil {
			return err
		}
		done := p.Subcommand() == "done"
		if err := a.Tracker.SetRoutineDone(ctx, id, p.Flag("date"), done); err != nil {
			return err
		}
		return a.emit(p, "routine "+p.Subcommand(), map[string]any{"id": id, "done": done}, func() {
			if done {
				a.success("Routine task #%d marked done", id)
			} else {
				a.success("Routine task #%d marked not done", id)
			}
		})
	}
	return usage("routine", routineUsage)
}

func (a *App) listRoutines(ctx context.Context, p *ArgParser) error {
	all := p.BoolFlag("all")
	tasks, err := a.Tracker.Routines(ctx, all)
	if err != nil {
		return err
	}
	return a.emit(p, "routine", tasks, func() {
		a.println(TitleStyle.Render("Routine tasks"))
		a.println(RenderSeparator())
		if len(tasks) == 0 {
			a.println(DimStyle.Render("  No routine tasks. Add one with: habitrun routine add <label>"))
			return
		}
		for _, r := range tasks {
			extra := ""
			if r.WeeklyGoalID != nil {
				extra = DimStyle.Render(fmt.Sprintf("  (weekly #%d)", *r.WeeklyGoalID))
			}
			if !r.Active {
				extra += DimStyle.Render("  inactive")
			}
			a.printf("  %s  %s%s\n", DimStyle.Render(fmt.Sprintf("#%-4d", r.ID)), r.Label, extra)
		}
	})
}
