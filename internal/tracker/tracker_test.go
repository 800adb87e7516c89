// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tracker

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/habitrun/internal/dayplan"
	"github.com/jeranaias/habitrun/internal/label"
	"github.com/jeranaias/habitrun/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "habitrun.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// newTracker returns a tracker whose clock starts at start and advances one
// second per reading.
func newTracker(t *testing.T, st *store.Store, profile string, start time.Time) *Tracker {
	t.Helper()
	tr := New(st, profile, nil)
	clock := start
	tr.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return tr
}

var march = time.Date(2025, 3, 10, 9, 0, 0, 0, time.Local)

// =============================================================================
// GOALS
// =============================================================================

func TestMonthlyGoalsSortedByMonthDescending(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)

	_, err := tr.CreateMonthlyGoal(ctx, "2025-01", "Walk more", "")
	require.NoError(t, err)
	_, err = tr.CreateMonthlyGoal(ctx, "2025-03", "Sleep earlier", "before midnight")
	require.NoError(t, err)
	_, err = tr.CreateMonthlyGoal(ctx, "2025-02", "Cook at home", "")
	require.NoError(t, err)

	goals, err := tr.MonthlyGoals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 3)
	assert.Equal(t, []string{"2025-03", "2025-02", "2025-01"},
		[]string{goals[0].ForMonth, goals[1].ForMonth, goals[2].ForMonth})
	assert.Equal(t, DefaultProfile, goals[0].Profile)
	assert.Equal(t, "before midnight", goals[0].Notes)
}

func TestCreateMonthlyGoalValidates(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)

	_, err := tr.CreateMonthlyGoal(ctx, "2025-03", "   ", "")
	assert.ErrorIs(t, err, ErrEmptyLabel)

	_, err = tr.CreateMonthlyGoal(ctx, "March", "Walk", "")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestProfilesAreIsolated(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	alice := newTracker(t, st, "alice", march)
	bob := newTracker(t, st, "bob", march)

	goal, err := alice.CreateMonthlyGoal(ctx, "2025-03", "Swim", "")
	require.NoError(t, err)

	goals, err := bob.MonthlyGoals(ctx)
	require.NoError(t, err)
	assert.Empty(t, goals)

	_, err = bob.MonthlyGoal(ctx, goal.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, bob.DeleteMonthlyGoal(ctx, goal.ID), store.ErrNotFound)

	_, err = alice.MonthlyGoal(ctx, goal.ID)
	assert.NoError(t, err)
}

func TestWeeklyGoalsFilteredByMonth(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)

	feb, err := tr.CreateMonthlyGoal(ctx, "2025-02", "Strength", "")
	require.NoError(t, err)

	linked, err := tr.CreateWeeklyGoal(ctx, "Two gym sessions", &feb.ID)
	require.NoError(t, err)
	unlinked, err := tr.CreateWeeklyGoal(ctx, "Drink water", nil)
	require.NoError(t, err)
	newest, err := tr.CreateWeeklyGoal(ctx, "Stretch daily", nil)
	require.NoError(t, err)

	all, err := tr.WeeklyGoals(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID, all[0].ID, "newest first")

	// Linked goals follow their monthly goal, unlinked ones their creation month.
	febGoals, err := tr.WeeklyGoals(ctx, "2025-02")
	require.NoError(t, err)
	require.Len(t, febGoals, 1)
	assert.Equal(t, linked.ID, febGoals[0].ID)

	marGoals, err := tr.WeeklyGoals(ctx, "2025-03")
	require.NoError(t, err)
	require.Len(t, marGoals, 2)
	assert.Equal(t, []int64{newest.ID, unlinked.ID}, []int64{marGoals[0].ID, marGoals[1].ID})

	children, err := tr.WeeklyGoalsFor(ctx, feb.ID)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, linked.ID, children[0].ID)
}

func TestCreateWeeklyGoalRejectsUnknownMonthlyGoal(t *testing.T) {
	tr := newTracker(t, openStore(t), "", march)
	missing := int64(42)
	_, err := tr.CreateWeeklyGoal(context.Background(), "Swim", &missing)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateWeeklyFieldOnlyReflectionFields(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)
	goal, err := tr.CreateWeeklyGoal(ctx, "Walk", nil)
	require.NoError(t, err)

	updated, err := tr.UpdateWeeklyField(ctx, goal.ID, "Achieved", " 5 walks ")
	require.NoError(t, err)
	assert.Equal(t, "5 walks", updated.Achieved)

	_, err = tr.UpdateWeeklyField(ctx, goal.ID, FieldChallenges, "rain")
	require.NoError(t, err)
	_, err = tr.UpdateWeeklyField(ctx, goal.ID, FieldImprove, "indoor plan")
	require.NoError(t, err)

	_, err = tr.UpdateWeeklyField(ctx, goal.ID, "title", "Run")
	assert.ErrorIs(t, err, ErrNotEditable)

	got, err := tr.WeeklyGoal(ctx, goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "Walk", got.Title)
	assert.Equal(t, "rain", got.Challenges)
	assert.Equal(t, "indoor plan", got.Improve)
}

func TestDeleteMonthlyGoalUnlinksWeeklyGoals(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)
	month, err := tr.CreateMonthlyGoal(ctx, "2025-03", "Energy", "")
	require.NoError(t, err)
	week, err := tr.CreateWeeklyGoal(ctx, "Early nights", &month.ID)
	require.NoError(t, err)

	require.NoError(t, tr.DeleteMonthlyGoal(ctx, month.ID))

	got, err := tr.WeeklyGoal(ctx, week.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MonthGoalID)
}

// =============================================================================
// ROUTINES
// =============================================================================

func TestEnsureRoutineDefaultsSeedsOnce(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)

	seeded, err := tr.EnsureRoutineDefaults(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = tr.EnsureRoutineDefaults(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	routines, err := tr.Routines(ctx, false)
	require.NoError(t, err)
	require.Len(t, routines, len(DefaultRoutines))
	assert.Equal(t, DefaultRoutines[0], routines[0].Label)
	assert.Equal(t, SourceManual, routines[0].Source)
}

func TestEnsureRoutineDefaultsCountsInactive(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)
	r, err := tr.CreateRoutine(ctx, "Yoga", nil, "")
	require.NoError(t, err)
	off := false
	_, err = tr.UpdateRoutine(ctx, r.ID, RoutineUpdate{Active: &off})
	require.NoError(t, err)

	seeded, err := tr.EnsureRoutineDefaults(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)

	active, err := tr.Routines(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := tr.Routines(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestRoutineCompletionPerDay(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)
	r, err := tr.CreateRoutine(ctx, "Walk", nil, "")
	require.NoError(t, err)

	require.NoError(t, tr.SetRoutineDone(ctx, r.ID, "2025-03-10", true))
	require.NoError(t, tr.SetRoutineDone(ctx, r.ID, "2025-03-10", true))

	entry, ok, err := tr.DailyEntry(ctx, "2025-03-10")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []Completion{{ID: r.ID, Done: true}}, entry.RoutineCompletions, "upserted, not duplicated")

	day, err := tr.Day(ctx, "2025-03-11")
	require.NoError(t, err)
	require.Len(t, day.Routines, 1)
	assert.False(t, day.Routines[0].Done)

	day, err = tr.Day(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.True(t, day.Routines[0].Done)

	assert.Error(t, tr.SetRoutineDone(ctx, r.ID, "10/03/2025", true))
}

// =============================================================================
// DAILY ENTRIES
// =============================================================================

func TestDailyEntryNotCreatedOnRead(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	tr := newTracker(t, st, "", march)

	entry, ok, err := tr.DailyEntry(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, DailyKey(DefaultProfile, tr.Today()), entry.Key)

	n, err := st.Count(ctx, store.DailyEntries)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddAndToggleDailyTask(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)

	task, err := tr.AddDailyTask(ctx, " Call mum ", TaskOptions{Date: "2025-03-10"})
	require.NoError(t, err)
	assert.Equal(t, "Call mum", task.Label)
	assert.Equal(t, SourceAdhoc, task.Source)
	assert.True(t, strings.HasPrefix(task.ID, "t"))

	toggled, err := tr.ToggleDailyTask(ctx, "2025-03-10", task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Done)

	set, err := tr.SetDailyTaskDone(ctx, "2025-03-10", task.ID, false)
	require.NoError(t, err)
	assert.False(t, set.Done)

	_, err = tr.ToggleDailyTask(ctx, "2025-03-10", "t-missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	require.NoError(t, tr.RemoveDailyTask(ctx, "2025-03-10", task.ID))
	entry, _, err := tr.DailyEntry(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Empty(t, entry.Tasks)
}

func TestLinkedTasksSortedByDate(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)
	goal, err := tr.CreateWeeklyGoal(ctx, "Hydration", nil)
	require.NoError(t, err)

	require.NoError(t, tr.AddWeeklyTask(ctx, goal.ID, "Bottle at desk", false, "2025-03-12"))
	require.NoError(t, tr.AddWeeklyTask(ctx, goal.ID, "Water before coffee", false, "2025-03-10"))
	require.NoError(t, tr.AddWeeklyTask(ctx, goal.ID, "3L water", true, ""))
	_, err = tr.AddDailyTask(ctx, "Unrelated", TaskOptions{Date: "2025-03-11"})
	require.NoError(t, err)

	linked, err := tr.LinkedTasks(ctx, goal.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, "2025-03-10", linked[0].Date)
	assert.Equal(t, "Water before coffee", linked[0].Label)
	assert.Equal(t, SourceWeekly, linked[0].Source)
	assert.Equal(t, "2025-03-12", linked[1].Date)

	routines, err := tr.RoutinesFor(ctx, goal.ID)
	require.NoError(t, err)
	require.Len(t, routines, 1)
	assert.Equal(t, SourceWeekly, routines[0].Source)
}

func TestAddPlanStoresAITasks(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)

	added, err := tr.AddPlan(ctx, dayplan.Plan{
		Date: "2025-03-15",
		Tasks: []dayplan.Task{
			{Label: "Walk", Time: "07:00"},
			{},
			{Label: "Meal prep", Notes: "chicken and rice"},
		},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)

	day, err := tr.Day(ctx, "2025-03-15")
	require.NoError(t, err)
	require.Len(t, day.Tasks, 2)
	assert.Equal(t, "07:00 Walk", day.Tasks[0].Label)
	assert.Equal(t, "Meal prep (chicken and rice)", day.Tasks[1].Label)
	assert.Equal(t, SourceAI, day.Tasks[0].Source)
}

func TestTaskLabels(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)
	_, err := tr.CreateRoutine(ctx, "Walk", nil, "")
	require.NoError(t, err)
	_, err = tr.AddDailyTask(ctx, "Dentist", TaskOptions{Date: "2025-03-10"})
	require.NoError(t, err)

	labels, err := tr.TaskLabels(ctx, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"Walk", "Dentist"}, labels)
}

// =============================================================================
// SCANS
// =============================================================================

func TestSaveScan(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)

	res := label.Result{
		Analysis: label.Analysis{
			Summary:     "Mostly oats",
			Ingredients: []label.Ingredient{{Name: "Oats", Effect: label.Good}},
		},
		Score:  label.HealthScore{Score: 8, Rating: label.RatingSafer},
		Scored: true,
	}
	first, err := tr.SaveScan(ctx, res, "oats.jpg")
	require.NoError(t, err)
	require.NotNil(t, first.Score)

	second, err := tr.SaveScan(ctx, label.Result{Analysis: label.Analysis{Summary: "blurry"}}, "")
	require.NoError(t, err)
	assert.Nil(t, second.Score)

	scans, err := tr.Scans(ctx)
	require.NoError(t, err)
	require.Len(t, scans, 2)
	assert.Equal(t, second.ID, scans[0].ID)
	assert.Equal(t, "Oats", scans[1].Analysis.Ingredients[0].Name)

	require.NoError(t, tr.DeleteScan(ctx, first.ID))
	scans, err = tr.Scans(ctx)
	require.NoError(t, err)
	assert.Len(t, scans, 1)
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func seed(t *testing.T, tr *Tracker) {
	t.Helper()
	ctx := context.Background()
	month, err := tr.CreateMonthlyGoal(ctx, "2025-03", "Energy", "")
	require.NoError(t, err)
	_, err = tr.CreateWeeklyGoal(ctx, "Early nights", &month.ID)
	require.NoError(t, err)
	_, err = tr.CreateRoutine(ctx, "Walk", nil, "")
	require.NoError(t, err)
	_, err = tr.AddDailyTask(ctx, "Dentist", TaskOptions{Date: "2025-03-10"})
	require.NoError(t, err)
}

func TestExportJSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTracker(t, openStore(t), "", march)
	seed(t, src)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf, FormatJSON))

	out := gjson.ParseBytes(buf.Bytes())
	assert.Equal(t, int64(1), out.Get("monthlyGoals.0.id").Int())
	assert.True(t, out.Get("labelScans").IsArray())
	assert.False(t, out.Get("appSettings").Exists())

	dst := newTracker(t, openStore(t), "", march)
	counts, err := dst.Import(ctx, &buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[store.MonthlyGoals])
	assert.Equal(t, 1, counts[store.DailyEntries])

	weekly, err := dst.WeeklyGoals(ctx, "2025-03")
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, "Early nights", weekly[0].Title)
}

func TestExportYAMLRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTracker(t, openStore(t), "", march)
	seed(t, src)

	var buf bytes.Buffer
	require.NoError(t, src.Export(ctx, &buf, FormatYAML))
	assert.Contains(t, buf.String(), "forMonth: 2025-03")

	dst := newTracker(t, openStore(t), "", march)
	_, err := dst.Import(ctx, &buf, FormatYAML)
	require.NoError(t, err)

	routines, err := dst.Routines(ctx, false)
	require.NoError(t, err)
	require.Len(t, routines, 1)
	assert.Equal(t, "Walk", routines[0].Label)
}

func TestImportCoercesKeys(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	tr := newTracker(t, st, "", march)
	seed(t, tr)

	payload := `{
		"monthlyGoals": [
			{"id": "7", "profile": "default", "forMonth": "2025-04", "title": "Run"},
			{"profile": "default", "forMonth": "2025-05", "title": "Swim"}
		],
		"routineTasks": [{"id": 3, "profile": "default", "label": "Stretch"}],
		"dailyEntries": [{"profile": "default", "date": "2025-04-01", "tasks": []}]
	}`
	counts, err := tr.Import(ctx, strings.NewReader(payload), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[store.MonthlyGoals])
	assert.Equal(t, 0, counts[store.WeeklyGoals], "missing collections are emptied")

	goals, err := tr.MonthlyGoals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, int64(8), goals[0].ID, "unkeyed record numbered after the highest id")
	assert.Equal(t, int64(7), goals[1].ID)

	routines, err := tr.Routines(ctx, false)
	require.NoError(t, err)
	require.Len(t, routines, 1, "missing active flag means active")

	entry, ok, err := tr.DailyEntry(ctx, "2025-04-01")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "default_2025-04-01", entry.Key)

	// New records continue after imported ids.
	next, err := tr.CreateMonthlyGoal(ctx, "2025-06", "Rest", "")
	require.NoError(t, err)
	assert.Greater(t, next.ID, int64(8))
}

func TestImportRejectsBadPayloadWithoutChanges(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)
	seed(t, tr)

	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{oops`},
		{"array root", `[]`},
		{"collection not array", `{"monthlyGoals": {"id": 1}}`},
		{"item not object", `{"monthlyGoals": [1]}`},
		{"bad id", `{"monthlyGoals": [{"id": "abc"}]}`},
		{"duplicate id", `{"weeklyGoals": [{"id": 1}, {"id": "1"}]}`},
		{"entry without key", `{"dailyEntries": [{"tasks": []}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Import(ctx, strings.NewReader(tt.payload), FormatJSON)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPayload), "got %v", err)
		})
	}

	goals, err := tr.MonthlyGoals(ctx)
	require.NoError(t, err)
	assert.Len(t, goals, 1)
}

func TestOverviewAndClear(t *testing.T) {
	ctx := context.Background()
	tr := newTracker(t, openStore(t), "", march)
	seed(t, tr)

	overview, err := tr.Overview(ctx)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, c := range overview {
		counts[c.Name] = c.Count
	}
	assert.Equal(t, 1, counts[store.MonthlyGoals])
	assert.Equal(t, 1, counts[store.RoutineTasks])
	assert.Zero(t, counts[store.LabelScans])

	require.NoError(t, tr.Clear(ctx, "MonthlyGoals"))
	docs, err := tr.Records(ctx, store.MonthlyGoals)
	require.NoError(t, err)
	assert.Empty(t, docs)

	assert.ErrorIs(t, tr.Clear(ctx, store.AppSettings), store.ErrUnknownCollection)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	f, err = ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("csv")
	assert.Error(t, err)
}
