// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package coach

import (
	"fmt"
	"strings"
)

const (
	fallbackNote   = "(Generated with the fallback template because Gemini was unavailable.)"
	fallbackNoteAr = "(تم إنشاء هذه الخطة الاحتياطية باللغة الإنجليزية.)"
)

func footnote(language string) string {
	if language == "ar" {
		return fallbackNote + "\n" + fallbackNoteAr
	}
	return fallbackNote
}

func fallbackMonthlyPlan(month, focus, language string) string {
	return strings.Join([]string{
		fmt.Sprintf("Monthly Plan (%s)", month),
		"Focus: " + orDefault(focus, "balance movement, nutrition, and recovery"),
		"",
		"Week 1: set clear targets",
		"• Define one nutrition tweak",
		"• Schedule two training blocks",
		"",
		"Week 2: consistency check",
		"• Track hydration daily",
		"• Add mindful cooldown after workouts",
		"",
		"Week 3: reset & refine",
		"• Review sleep routine",
		"• Swap one snack for a protein-rich option",
		"",
		"Week 4: celebrate + prep",
		"• Log wins and challenges",
		"• Prep next month's top focus",
		footnote(language),
	}, "\n")
}

func fallbackWeeklyReflection(in WeeklyInput) string {
	reflections := "No week info captured. Take 2 minutes to jot down highlights."
	if len(in.Weeks) > 0 {
		reflections = summarizeWeeks(in.Weeks, "remember to capture highlights")
	}

	lines := []string{"Weekly Reflection Template", reflections}
	if notes := strings.TrimSpace(in.ManualNotes); notes != "" {
		lines = append(lines, "Extra notes: "+notes)
	}
	if in.IncludeTasks {
		lines = append(lines,
			"",
			"Suggested tasks:",
			"• Prioritize one big rock daily",
			"• Block time for recovery",
			"• Share goals with an accountability buddy")
	}
	lines = append(lines, footnote(in.Language))
	return strings.Join(lines, "\n")
}

func fallbackDailySuggestions(day string, tasks []string, schedule, language string) string {
	listed := "1. Hydration anchoring\n2. Movement snack\n3. Evening review"
	if items := nonEmpty(tasks); len(items) > 0 {
		numbered := make([]string, len(items))
		for i, t := range items {
			numbered[i] = fmt.Sprintf("%d. %s", i+1, t)
		}
		listed = strings.Join(numbered, "\n")
	}

	return strings.Join([]string{
		fmt.Sprintf("Daily Plan (%s)", day),
		"Schedule notes: " + orDefault(schedule, "flexible"),
		"",
		listed,
		"",
		"Tip: pair each task with an existing habit for easier follow-through.",
		footnote(language),
	}, "\n")
}

func fallbackMotivation(tasks []string, mood, language string) string {
	taskLine := strings.Join(nonEmpty(tasks), ", ")
	if taskLine == "" {
		taskLine = "your planned actions"
	}

	return strings.Join([]string{
		"Motivation Boost",
		"Mood: " + orDefault(mood, "unspecified"),
		"",
		fmt.Sprintf("You've already committed to %s. Show up for the first 5 minutes and momentum will carry you further.", taskLine),
		`Quote: "Discipline is choosing between what you want now and what you want most." (Augusta F. Kantra)`,
		footnote(language),
	}, "\n")
}
