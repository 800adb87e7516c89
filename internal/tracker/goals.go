// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jeranaias/habitrun/internal/store"
)

// ErrNotEditable is returned when a weekly goal field cannot be edited.
var ErrNotEditable = errors.New("field is not editable")

// =============================================================================
// MONTHLY GOALS
// =============================================================================

// MonthlyGoal is a goal for one calendar month.
type MonthlyGoal struct {
	ID        int64  `json:"id" yaml:"id"`
	Profile   string `json:"profile" yaml:"profile"`
	ForMonth  string `json:"forMonth" yaml:"forMonth"`
	Title     string `json:"title" yaml:"title"`
	Notes     string `json:"notes" yaml:"notes"`
	CreatedAt int64  `json:"createdAt" yaml:"createdAt"`
}

func (g MonthlyGoal) owner() string { return g.Profile }

// CreateMonthlyGoal stores a new monthly goal for forMonth (YYYY-MM).
func (t *Tracker) CreateMonthlyGoal(ctx context.Context, forMonth, title, notes string) (MonthlyGoal, error) {
	title, err := cleanLabel(title)
	if err != nil {
		return MonthlyGoal{}, err
	}
	if _, err := ParseMonth(forMonth); err != nil {
		return MonthlyGoal{}, err
	}

	var goal MonthlyGoal
	_, err = t.store.Insert(ctx, store.MonthlyGoals, func(id int64) (any, error) {
		goal = MonthlyGoal{
			ID:        id,
			Profile:   t.profile,
			ForMonth:  strings.TrimSpace(forMonth),
			Title:     title,
			Notes:     strings.TrimSpace(notes),
			CreatedAt: t.nowMillis(),
		}
		return goal, nil
	})
	if err != nil {
		return MonthlyGoal{}, fmt.Errorf("failed to create monthly goal: %w", err)
	}
	t.log.WithField("id", goal.ID).Debug("Monthly goal created")
	return goal, nil
}

// MonthlyGoals lists the profile's monthly goals, latest month first.
func (t *Tracker) MonthlyGoals(ctx context.Context) ([]MonthlyGoal, error) {
	goals, err := listOwned[MonthlyGoal](ctx, t, store.MonthlyGoals)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(goals, func(a, b MonthlyGoal) int {
		if c := strings.Compare(b.ForMonth, a.ForMonth); c != 0 {
			return c
		}
		return compareInt(b.CreatedAt, a.CreatedAt)
	})
	return goals, nil
}

// MonthlyGoal returns one monthly goal.
func (t *Tracker) MonthlyGoal(ctx context.Context, id int64) (MonthlyGoal, error) {
	return getOwned[MonthlyGoal](ctx, t, store.MonthlyGoals, id)
}

// UpdateMonthlyNotes replaces a monthly goal's notes.
func (t *Tracker) UpdateMonthlyNotes(ctx context.Context, id int64, notes string) (MonthlyGoal, error) {
	goal, err := t.MonthlyGoal(ctx, id)
	if err != nil {
		return MonthlyGoal{}, err
	}
	goal.Notes = strings.TrimSpace(notes)
	if err := t.store.Put(ctx, store.MonthlyGoals, store.IntKey(id), goal); err != nil {
		return MonthlyGoal{}, err
	}
	return goal, nil
}

// DeleteMonthlyGoal removes a monthly goal. Weekly goals linked to it are
// kept and unlinked.
func (t *Tracker) DeleteMonthlyGoal(ctx context.Context, id int64) error {
	if _, err := t.MonthlyGoal(ctx, id); err != nil {
		return err
	}
	children, err := t.WeeklyGoalsFor(ctx, id)
	if err != nil {
		return err
	}
	for _, w := range children {
		w.MonthGoalID = nil
		if err := t.store.Put(ctx, store.WeeklyGoals, store.IntKey(w.ID), w); err != nil {
			return err
		}
	}
	return t.store.Delete(ctx, store.MonthlyGoals, store.IntKey(id))
}

// =============================================================================
// WEEKLY GOALS
// =============================================================================

// Weekly goal fields that can be edited after creation.
const (
	FieldAchieved   = "achieved"
	FieldChallenges = "challenges"
	FieldImprove    = "improve"
)

// WeeklyGoal is a goal for one week, optionally linked to a monthly goal.
type WeeklyGoal struct {
	ID          int64  `json:"id" yaml:"id"`
	Profile     string `json:"profile" yaml:"profile"`
	Title       string `json:"title" yaml:"title"`
	Achieved    string `json:"achieved" yaml:"achieved"`
	Challenges  string `json:"challenges" yaml:"challenges"`
	Improve     string `json:"improve" yaml:"improve"`
	CreatedAt   int64  `json:"createdAt" yaml:"createdAt"`
	MonthGoalID *int64 `json:"monthGoalId" yaml:"monthGoalId"`
}

func (g WeeklyGoal) owner() string { return g.Profile }

// CreateWeeklyGoal stores a new weekly goal. monthGoalID may be nil; when
// set it must name one of the profile's monthly goals.
func (t *Tracker) CreateWeeklyGoal(ctx context.Context, title string, monthGoalID *int64) (WeeklyGoal, error) {
	title, err := cleanLabel(title)
	if err != nil {
		return WeeklyGoal{}, err
	}
	if monthGoalID != nil {
		if _, err := t.MonthlyGoal(ctx, *monthGoalID); err != nil {
			return WeeklyGoal{}, fmt.Errorf("monthly goal %d: %w", *monthGoalID, err)
		}
	}

	var goal WeeklyGoal
	_, err = t.store.Insert(ctx, store.WeeklyGoals, func(id int64) (any, error) {
		goal = WeeklyGoal{
			ID:          id,
			Profile:     t.profile,
			Title:       title,
			CreatedAt:   t.nowMillis(),
			MonthGoalID: monthGoalID,
		}
		return goal, nil
	})
	if err != nil {
		return WeeklyGoal{}, fmt.Errorf("failed to create weekly goal: %w", err)
	}
	t.log.WithField("id", goal.ID).Debug("Weekly goal created")
	return goal, nil
}

// WeeklyGoal returns one weekly goal.
func (t *Tracker) WeeklyGoal(ctx context.Context, id int64) (WeeklyGoal, error) {
	return getOwned[WeeklyGoal](ctx, t, store.WeeklyGoals, id)
}

// WeeklyGoals lists the profile's weekly goals, newest first. A non-empty
// month (YYYY-MM) keeps goals linked to a monthly goal of that month, or
// unlinked goals created during it.
func (t *Tracker) WeeklyGoals(ctx context.Context, month string) ([]WeeklyGoal, error) {
	goals, err := listOwned[WeeklyGoal](ctx, t, store.WeeklyGoals)
	if err != nil {
		return nil, err
	}

	month = strings.TrimSpace(month)
	if month != "" {
		if _, err := ParseMonth(month); err != nil {
			return nil, err
		}
		months, err := t.monthIndex(ctx)
		if err != nil {
			return nil, err
		}
		filtered := goals[:0]
		for _, g := range goals {
			if weeklyMonth(g, months) == month {
				filtered = append(filtered, g)
			}
		}
		goals = filtered
	}

	slices.SortStableFunc(goals, func(a, b WeeklyGoal) int {
		return compareInt(b.CreatedAt, a.CreatedAt)
	})
	return goals, nil
}

// WeeklyGoalsFor lists the weekly goals linked to a monthly goal.
func (t *Tracker) WeeklyGoalsFor(ctx context.Context, monthGoalID int64) ([]WeeklyGoal, error) {
	goals, err := listOwned[WeeklyGoal](ctx, t, store.WeeklyGoals)
	if err != nil {
		return nil, err
	}
	out := goals[:0]
	for _, g := range goals {
		if g.MonthGoalID != nil && *g.MonthGoalID == monthGoalID {
			out = append(out, g)
		}
	}
	slices.SortStableFunc(out, func(a, b WeeklyGoal) int {
		return compareInt(b.CreatedAt, a.CreatedAt)
	})
	return out, nil
}

// UpdateWeeklyField sets one of the editable reflection fields.
func (t *Tracker) UpdateWeeklyField(ctx context.Context, id int64, field, value string) (WeeklyGoal, error) {
	goal, err := t.WeeklyGoal(ctx, id)
	if err != nil {
		return WeeklyGoal{}, err
	}

	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldAchieved:
		goal.Achieved = value
	case FieldChallenges:
		goal.Challenges = value
	case FieldImprove:
		goal.Improve = value
	default:
		return WeeklyGoal{}, fmt.Errorf("%w: %q", ErrNotEditable, field)
	}

	if err := t.store.Put(ctx, store.WeeklyGoals, store.IntKey(id), goal); err != nil {
		return WeeklyGoal{}, err
	}
	return goal, nil
}

// DeleteWeeklyGoal removes a weekly goal. Tasks linked to it keep their link.
func (t *Tracker) DeleteWeeklyGoal(ctx context.Context, id int64) error {
	if _, err := t.WeeklyGoal(ctx, id); err != nil {
		return err
	}
	return t.store.Delete(ctx, store.WeeklyGoals, store.IntKey(id))
}

// monthIndex maps monthly goal ids to their month.
func (t *Tracker) monthIndex(ctx context.Context) (map[int64]string, error) {
	monthly, err := listOwned[MonthlyGoal](ctx, t, store.MonthlyGoals)
	if err != nil {
		return nil, err
	}
	idx := make(map[int64]string, len(monthly))
	for _, m := range monthly {
		idx[m.ID] = m.ForMonth
	}
	return idx, nil
}

// weeklyMonth is the month a weekly goal belongs to: its monthly goal's
// month when linked, else the month it was created in.
func weeklyMonth(g WeeklyGoal, months map[int64]string) string {
	if g.MonthGoalID != nil {
		if m, ok := months[*g.MonthGoalID]; ok {
			return m
		}
	}
	return time.UnixMilli(g.CreatedAt).Format(MonthLayout)
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
