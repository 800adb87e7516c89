// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// coach_cmd.go - AI coach prompts.
//
// USAGE:
//
//	habitrun coach monthly [--month YYYY-MM] [focus...]
//	habitrun coach weekly [--month YYYY-MM] [--weeks N] [--tasks] [--notes TEXT]
//	habitrun coach daily [--date YYYY-MM-DD] [--schedule TEXT]
//	habitrun coach motivation [--mood TEXT]
//
// Inputs default to what is already tracked: monthly goals for the month,
// the latest weekly reflections, and the day's routine and tasks.

package cli

import (
	"context"
	"slices"
	"strings"

	"github.com/jeranaias/habitrun/internal/coach"
	"github.com/jeranaias/habitrun/internal/tracker"
)

// CoachData is the JSON form of a coach answer.
type CoachData struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

const defaultReflectionWeeks = 4

// HandleCoach handles "habitrun coach".
func (a *App) HandleCoach(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json", "tasks")

	var (
		kind = p.Subcommand()
		call func() (coach.Result, error)
	)
	switch kind {
	case "monthly", "month":
		kind = "monthly"
		in, err := a.monthlyInput(ctx, p)
		if err != nil {
			return err
		}
		call = func() (coach.Result, error) { return a.Coach.MonthlyPlan(ctx, in) }

	case "weekly", "week", "reflect":
		kind = "weekly"
		in, err := a.weeklyInput(ctx, p)
		if err != nil {
			return err
		}
		call = func() (coach.Result, error) { return a.Coach.WeeklyReflection(ctx, in) }

	case "daily", "day":
		kind = "daily"
		in, err := a.dailyInput(ctx, p)
		if err != nil {
			return err
		}
		call = func() (coach.Result, error) { return a.Coach.DailySuggestions(ctx, in) }

	case "motivation", "motivate", "boost":
		kind = "motivation"
		labels, err := a.Tracker.TaskLabels(ctx, "")
		if err != nil {
			return err
		}
		in := coach.MotivationInput{
			Tasks:    labels,
			Mood:     joinNonEmpty(p.Flag("mood"), JoinPositionalArgs(p, 1)),
			Language: a.Language(),
		}
		call = func() (coach.Result, error) { return a.Coach.Motivation(ctx, in) }

	default:
		return usage("coach", "monthly|weekly|daily|motivation")
	}

	var res coach.Result
	err := a.withSpinner(p, "Asking the coach", func() error {
		var err error
		res, err = call()
		return err
	})
	if err != nil {
		return err
	}

	data := CoachData{Kind: kind, Text: res.Text, Fallback: res.Fallback}
	return a.emit(p, "coach "+kind, data, func() {
		if res.Fallback {
			a.println(WarningStyle.Render("Offline: showing a built-in suggestion."))
		}
		a.printf("%s", a.renderer.Render(res.Text))
	})
}

func (a *App) monthlyInput(ctx context.Context, p *ArgParser) (coach.MonthlyInput, error) {
	month := p.Flag("month")
	if month == "" {
		month = a.Tracker.Today()[:7]
	}
	if _, err := tracker.ParseMonth(month); err != nil {
		return coach.MonthlyInput{}, err
	}

	focus := JoinPositionalArgs(p, 1)
	if focus == "" {
		goals, err := a.Tracker.MonthlyGoals(ctx)
		if err != nil {
			return coach.MonthlyInput{}, err
		}
		var parts []string
		for _, g := range goals {
			if g.ForMonth != month {
				continue
			}
			parts = append(parts, joinNonEmpty(g.Title, g.Notes))
		}
		focus = strings.Join(parts, "; ")
	}
	return coach.MonthlyInput{Month: month, GoalContext: focus, Language: a.Language()}, nil
}

func (a *App) weeklyInput(ctx context.Context, p *ArgParser) (coach.WeeklyInput, error) {
	goals, err := a.Tracker.WeeklyGoals(ctx, p.Flag("month"))
	if err != nil {
		return coach.WeeklyInput{}, err
	}
	n := p.FlagIntOrDefault("weeks", defaultReflectionWeeks)
	if n > 0 && len(goals) > n {
		goals = goals[:n]
	}
	// newest first from the tracker; the prompt reads better oldest first
	slices.Reverse(goals)

	weeks := make([]coach.WeekSummary, 0, len(goals))
	for _, g := range goals {
		weeks = append(weeks, coach.WeekSummary{
			Title:      g.Title,
			Achieved:   g.Achieved,
			Challenges: g.Challenges,
			Notes:      g.Improve,
		})
	}
	return coach.WeeklyInput{
		Weeks:        weeks,
		IncludeTasks: p.BoolFlag("tasks"),
		ManualNotes:  p.Flag("notes"),
		Language:     a.Language(),
	}, nil
}

func (a *App) dailyInput(ctx context.Context, p *ArgParser) (coach.DailyInput, error) {
	if _, err := a.Tracker.EnsureRoutineDefaults(ctx); err != nil {
		return coach.DailyInput{}, err
	}
	day, err := a.Tracker.Day(ctx, p.Flag("date"))
	if err != nil {
		return coach.DailyInput{}, err
	}
	var tasks []string
	for _, r := range day.Routines {
		if !r.Done {
			tasks = append(tasks, r.Routine.Label)
		}
	}
	for _, t := range day.Tasks {
		if !t.Done {
			tasks = append(tasks, t.Label)
		}
	}
	return coach.DailyInput{
		Date:     day.Date,
		Tasks:    tasks,
		Schedule: joinNonEmpty(p.Flag("schedule"), JoinPositionalArgs(p, 1)),
		Language: a.Language(),
	}, nil
}
