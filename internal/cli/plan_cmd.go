// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// plan_cmd.go - AI day planner.
//
// USAGE:
//
//	habitrun plan [--date YYYY-MM-DD] [--tasks "a, b"] [--notes TEXT] [--approve|--yes]
//
// Without --tasks the day's existing task labels are sent. The proposed plan
// is shown and, once approved, added to the day as AI tasks.

package cli

import (
	"context"
	"strings"

	"github.com/jeranaias/habitrun/internal/dayplan"
	"github.com/jeranaias/habitrun/internal/tracker"
)

// PlanData is the JSON form of the plan command.
type PlanData struct {
	Plan     dayplan.Plan        `json:"plan"`
	Strategy string              `json:"strategy"`
	Added    []tracker.DailyTask `json:"added,omitempty"`
}

// HandlePlan handles "habitrun plan".
func (a *App) HandlePlan(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json", "approve", "yes", "y")

	date := p.Flag("date")
	if date == "" {
		date = a.Tracker.Today()
	}
	if _, err := tracker.ParseDate(date); err != nil {
		return err
	}

	tasks := p.Flag("tasks")
	if tasks == "" {
		labels, err := a.Tracker.TaskLabels(ctx, date)
		if err != nil {
			return err
		}
		tasks = strings.Join(labels, ", ")
	}
	notes := joinNonEmpty(p.Flag("notes"), JoinPositionalArgs(p, 0))

	var plan dayplan.Plan
	err := a.withSpinner(p, "Planning "+date, func() error {
		var err error
		plan, err = a.Planner.Request(ctx, dayplan.Input{
			Date:     date,
			Tasks:    tasks,
			Notes:    notes,
			Language: a.Language(),
		})
		return err
	})
	if err != nil {
		return err
	}

	data := PlanData{Plan: plan, Strategy: plan.Strategy}
	if !a.jsonMode(p) {
		a.printPlan(plan)
	}

	approve := p.BoolFlag("approve") || p.BoolFlag("yes") || p.BoolFlag("y")
	if !approve && !a.jsonMode(p) && len(plan.Tasks) > 0 {
		pr := a.newPrompter()
		approve, err = pr.YesNo("Add these tasks to " + date + "?")
		pr.Close()
		if err != nil {
			return err
		}
	}
	if approve {
		data.Added, err = a.Tracker.AddPlan(ctx, plan)
		if err != nil {
			return err
		}
	}

	return a.emit(p, "plan", data, func() {
		if approve {
			a.success("%d tasks added to %s", len(data.Added), date)
		} else {
			a.println(DimStyle.Render("Plan not saved."))
		}
	})
}

func (a *App) printPlan(plan dayplan.Plan) {
	a.println(TitleStyle.Render("Plan for " + plan.Date))
	a.println(RenderSeparator())
	if len(plan.Tasks) == 0 {
		a.println(DimStyle.Render("  The planner returned no tasks."))
		return
	}
	for i, t := range plan.Tasks {
		when := ""
		if t.Time != "" {
			when = LabelStyle.Render(t.Time) + "  "
		}
		a.printf("  %d. %s%s\n", i+1, when, t.Label)
		if t.Notes != "" {
			a.printf("     %s\n", DimStyle.Render(t.Notes))
		}
	}
}

// joinNonEmpty joins the non-empty parts with a space.
func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, " ")
}
