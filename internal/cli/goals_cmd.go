// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// goals_cmd.go - Monthly and weekly goal commands.
//
// USAGE:
//
//	habitrun goals monthly [list]
//	habitrun goals monthly add <YYYY-MM> <title...> [--notes TEXT]
//	habitrun goals monthly notes <id> <text...>
//	habitrun goals monthly show <id>
//	habitrun goals monthly delete <id>
//
//	habitrun goals weekly [list] [--month YYYY-MM]
//	habitrun goals weekly add <title...> [--monthly ID]
//	habitrun goals weekly set <id> achieved|challenges|improve <text...>
//	habitrun goals weekly tasks <id>
//	habitrun goals weekly link <id> <label...> [--routine] [--date YYYY-MM-DD]
//	habitrun goals weekly delete <id>

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/habitrun/internal/tracker"
	"github.com/jeranaias/habitrun/internal/util"
)

const (
	goalsMonthlyUsage = "monthly [list|add <YYYY-MM> <title>|notes <id> <text>|show <id>|delete <id>]"
	goalsWeeklyUsage  = "weekly [list|add <title>|set <id> <field> <text>|tasks <id>|link <id> <label>|delete <id>]"
)

// HandleGoals handles "habitrun goals".
func (a *App) HandleGoals(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json", "routine")

	switch p.Subcommand() {
	case "monthly", "month", "m":
		return a.handleMonthly(ctx, p)
	case "weekly", "week", "w":
		return a.handleWeekly(ctx, p)
	case "":
		return a.listAllGoals(ctx, p)
	}
	return usage("goals", goalsMonthlyUsage+"\n       habitrun goals "+goalsWeeklyUsage)
}

func (a *App) listAllGoals(ctx context.Context, p *ArgParser) error {
	monthly, err := a.Tracker.MonthlyGoals(ctx)
	if err != nil {
		return err
	}
	weekly, err := a.Tracker.WeeklyGoals(ctx, "")
	if err != nil {
		return err
	}
	data := map[string]any{"monthly": monthly, "weekly": weekly}
	return a.emit(p, "goals", data, func() {
		a.printMonthly(monthly)
		a.println()
		a.printWeekly(weekly)
	})
}

// =============================================================================
// MONTHLY
// =============================================================================

func (a *App) handleMonthly(ctx context.Context, p *ArgParser) error {
	switch p.Positional(1) {
	case "", "list", "ls":
		goals, err := a.Tracker.MonthlyGoals(ctx)
		if err != nil {
			return err
		}
		return a.emit(p, "goals monthly", goals, func() { a.printMonthly(goals) })

	case "add", "new":
		month := p.Positional(2)
		if month == "" {
			month = time.Now().Format(tracker.MonthLayout)
		}
		goal, err := a.Tracker.CreateMonthlyGoal(ctx, month, JoinPositionalArgs(p, 3), p.Flag("notes"))
		if err != nil {
			return err
		}
		return a.emit(p, "goals monthly add", goal, func() {
			a.success("Monthly goal #%d added for %s", goal.ID, goal.ForMonth)
		})

	case "notes":
		id, err := ParseID(p.Positional(2), "goal id")
		if err != nil {
			return err
		}
		goal, err := a.Tracker.UpdateMonthlyNotes(ctx, id, JoinPositionalArgs(p, 3))
		if err != nil {
			return err
		}
		return a.emit(p, "goals monthly notes", goal, func() {
			a.success("Notes saved for monthly goal #%d", goal.ID)
		})

	case "show":
		id, err := ParseID(p.Positional(2), "goal id")
		if err != nil {
			return err
		}
		goal, err := a.Tracker.MonthlyGoal(ctx, id)
		if err != nil {
			return err
		}
		children, err := a.Tracker.WeeklyGoalsFor(ctx, id)
		if err != nil {
			return err
		}
		data := map[string]any{"goal": goal, "weekly": children}
		return a.emit(p, "goals monthly show", data, func() {
			a.printMonthly([]tracker.MonthlyGoal{goal})
			a.println()
			a.printWeekly(children)
		})

	case "delete", "rm":
		id, err := ParseID(p.Positional(2), "goal id")
		if err != nil {
			return err
		}
		if err := a.Tracker.DeleteMonthlyGoal(ctx, id); err != nil {
			return err
		}
		return a.emit(p, "goals monthly delete", map[string]int64{"deleted": id}, func() {
			a.success("Monthly goal #%d deleted", id)
		})
	}
	return usage("goals", goalsMonthlyUsage)
}

func (a *App) printMonthly(goals []tracker.MonthlyGoal) {
	a.println(TitleStyle.Render("Monthly goals"))
	a.println(RenderSeparator())
	if len(goals) == 0 {
		a.println(DimStyle.Render("  No monthly goals yet. Add one with: habitrun goals monthly add YYYY-MM <title>"))
		return
	}
	for _, g := range goals {
		a.printf("  %s  %s  %s\n",
			DimStyle.Render(fmt.Sprintf("#%-4d", g.ID)),
			LabelStyle.Render(g.ForMonth),
			util.TruncateWidth(g.Title, GetTerminalWidth()-20))
		if g.Notes != "" {
			a.printf("         %s\n", DimStyle.Render(util.TruncateWidth(g.Notes, GetTerminalWidth()-12)))
		}
	}
}

// =============================================================================
// WEEKLY
// =============================================================================

func (a *App) handleWeekly(ctx context.Context, p *ArgParser) error {
	switch p.Positional(1) {
	case "", "list", "ls":
		goals, err := a.Tracker.WeeklyGoals(ctx, p.Flag("month"))
		if err != nil {
			return err
		}
		return a.emit(p, "goals weekly", goals, func() { a.printWeekly(goals) })

	case "add", "new":
		var monthly *int64
		if raw := p.Flag("monthly"); raw != "" {
			id, err := ParseID(raw, "monthly goal id")
			if err != nil {
				return err
			}
			monthly = &id
		}
		goal, err := a.Tracker.CreateWeeklyGoal(ctx, JoinPositionalArgs(p, 2), monthly)
		if err != nil {
			return err
		}
		return a.emit(p, "goals weekly add", goal, func() {
			a.success("Weekly goal #%d added", goal.ID)
		})

	case "set":
		id, err := ParseID(p.Positional(2), "goal id")
		if err != nil {
			return err
		}
		goal, err := a.Tracker.UpdateWeeklyField(ctx, id, p.Positional(3), JoinPositionalArgs(p, 4))
		if err != nil {
			return err
		}
		return a.emit(p, "goals weekly set", goal, func() {
			a.success("Weekly goal #%d: %s saved", goal.ID, p.Positional(3))
		})

	case "tasks":
		id, err := ParseID(p.Positional(2), "goal id")
		if err != nil {
			return err
		}
		goal, err := a.Tracker.WeeklyGoal(ctx, id)
		if err != nil {
			return err
		}
		routines, err := a.Tracker.RoutinesFor(ctx, id)
		if err != nil {
			return err
		}
		linked, err := a.Tracker.LinkedTasks(ctx, id)
		if err != nil {
			return err
		}
		data := map[string]any{"goal": goal, "routines": routines, "tasks": linked}
		return a.emit(p, "goals weekly tasks", data, func() {
			a.printWeekly([]tracker.WeeklyGoal{goal})
			a.println()
			a.println(SectionStyle.Render("Routine tasks"))
			if len(routines) == 0 {
				a.println(DimStyle.Render("  none"))
			}
			for _, r := range routines {
				state := ""
				if !r.Active {
					state = DimStyle.Render(" (inactive)")
				}
				a.printf("  #%-4d %s%s\n", r.ID, r.Label, state)
			}
			a.println(SectionStyle.Render("Daily tasks"))
			if len(linked) == 0 {
				a.println(DimStyle.Render("  none"))
			}
			for _, t := range linked {
				a.printf("  %s %s  %s\n", RenderCheck(t.Done), DimStyle.Render(t.Date), t.Label)
			}
		})

	case "link":
		id, err := ParseID(p.Positional(2), "goal id")
		if err != nil {
			return err
		}
		text := JoinPositionalArgs(p, 3)
		asRoutine := p.BoolFlag("routine")
		if err := a.Tracker.AddWeeklyTask(ctx, id, text, asRoutine, p.Flag("date")); err != nil {
			return err
		}
		kind := "daily task"
		if asRoutine {
			kind = "routine task"
		}
		return a.emit(p, "goals weekly link", map[string]any{"goal": id, "label": text, "routine": asRoutine}, func() {
			a.success("Added %s to weekly goal #%d", kind, id)
		})

	case "delete", "rm":
		id, err := ParseID(p.Positional(2), "goal id")
		if err != nil {
			return err
		}
		if err := a.Tracker.DeleteWeeklyGoal(ctx, id); err != nil {
			return err
		}
		return a.emit(p, "goals weekly delete", map[string]int64{"deleted": id}, func() {
			a.success("Weekly goal #%d deleted", id)
		})
	}
	return usage("goals", goalsWeeklyUsage)
}

func (a *App) printWeekly(goals []tracker.WeeklyGoal) {
	a.println(TitleStyle.Render("Weekly goals"))
	a.println(RenderSeparator())
	if len(goals) == 0 {
		a.println(DimStyle.Render("  No weekly goals yet. Add one with: habitrun goals weekly add <title>"))
		return
	}
	width := GetTerminalWidth() - 16
	for _, g := range goals {
		link := ""
		if g.MonthGoalID != nil {
			link = DimStyle.Render(fmt.Sprintf("  (monthly #%d)", *g.MonthGoalID))
		}
		a.printf("  %s  %s%s\n", DimStyle.Render(fmt.Sprintf("#%-4d", g.ID)), util.TruncateWidth(g.Title, width), link)
		for _, f := range []struct{ name, value string }{
			{"achieved", g.Achieved},
			{"challenges", g.Challenges},
			{"improve", g.Improve},
		} {
			if f.value != "" {
				a.printf("         %s %s\n", RenderLabel(f.name), util.TruncateWidth(f.value, width-12))
			}
		}
	}
}
