// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package coach builds the coaching prompts (monthly plan, weekly
// reflection, daily suggestions, motivation) and falls back to fixed
// templates when the model cannot be reached while offline.
package coach

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/logging"
	"github.com/jeranaias/habitrun/internal/offline"
)

const (
	baseSystemPrompt = "You are Health Coach AI, a concise, upbeat wellness companion. Keep replies under 170 words, use short headings or bullets, and sound encouraging without medical advice."

	arabicInstruction = "\nRespond in Arabic using friendly motivational tone."

	motivationTemperature = 0.85
	motivationMaxTokens   = 180
)

// Result is coaching text. Fallback is set when the text came from an
// offline template.
type Result struct {
	Text     string
	Fallback bool
}

// Coach composes coaching requests.
type Coach struct {
	gen     gemini.Generator
	offline offline.Signal
	log     *logrus.Entry
}

// New creates a coach. gen is normally a queued generator; sig decides
// whether failures may fall back to templates.
func New(gen gemini.Generator, sig offline.Signal, logger *logrus.Logger) *Coach {
	if sig == nil {
		sig = offline.Static(false)
	}
	return &Coach{gen: gen, offline: sig, log: logging.For(logger, "coach")}
}

// =============================================================================
// INPUTS
// =============================================================================

// MonthlyInput describes a month to plan.
type MonthlyInput struct {
	Month       string // YYYY-MM
	GoalContext string
	Language    string
}

// WeekSummary is one week fed to a reflection. Titled entries come from
// saved weekly goals; untitled ones are free notes.
type WeekSummary struct {
	Title      string
	Achieved   string
	Challenges string
	Week       int
	Notes      string
}

// WeeklyInput describes a reflection.
type WeeklyInput struct {
	Weeks        []WeekSummary
	IncludeTasks bool
	ManualNotes  string
	Language     string
}

// DailyInput describes a day.
type DailyInput struct {
	Date     string // YYYY-MM-DD
	Tasks    []string
	Schedule string
	Language string
}

// MotivationInput describes the current mood.
type MotivationInput struct {
	Tasks    []string
	Mood     string
	Language string
}

// =============================================================================
// BUILDERS
// =============================================================================

// MonthlyPlan asks for four weekly milestones.
func (c *Coach) MonthlyPlan(ctx context.Context, in MonthlyInput) (Result, error) {
	month := formatMonth(in.Month)
	req := MonthlyRequest(in)
	return c.call(ctx, req, func() string {
		return fallbackMonthlyPlan(month, in.GoalContext, in.Language)
	})
}

// WeeklyReflection asks for wins, lessons and priorities.
func (c *Coach) WeeklyReflection(ctx context.Context, in WeeklyInput) (Result, error) {
	return c.call(ctx, WeeklyRequest(in), func() string {
		return fallbackWeeklyReflection(in)
	})
}

// DailySuggestions asks for an ordered action plan.
func (c *Coach) DailySuggestions(ctx context.Context, in DailyInput) (Result, error) {
	day := formatDate(in.Date)
	return c.call(ctx, DailyRequest(in), func() string {
		return fallbackDailySuggestions(day, in.Tasks, in.Schedule, in.Language)
	})
}

// Motivation asks for a pep talk and a quote.
func (c *Coach) Motivation(ctx context.Context, in MotivationInput) (Result, error) {
	return c.call(ctx, MotivationRequest(in), func() string {
		return fallbackMotivation(in.Tasks, in.Mood, in.Language)
	})
}

// call generates text. The template is used only when generation fails
// while offline; any other failure is returned.
func (c *Coach) call(ctx context.Context, req gemini.Request, fallback func() string) (Result, error) {
	text, err := c.gen.Generate(ctx, req)
	if err == nil {
		return Result{Text: strings.TrimSpace(text)}, nil
	}

	// A cached "reachable" answer predates this failure.
	if gemini.KindOf(err) == gemini.KindNetwork {
		if p, ok := c.offline.(offline.Prober); ok {
			p.Probe(ctx)
		}
	}
	if c.offline.IsOffline() {
		c.log.WithFields(logrus.Fields{
			"purpose": req.Purpose,
			"kind":    string(gemini.KindOf(err)),
		}).WithError(err).Info("offline, using fallback template")
		return Result{Text: fallback(), Fallback: true}, nil
	}
	return Result{}, err
}

// =============================================================================
// REQUESTS
// =============================================================================

// MonthlyRequest builds the monthly plan request.
func MonthlyRequest(in MonthlyInput) gemini.Request {
	user := fmt.Sprintf(
		"Plan weekly milestones for %s. Monthly focus: %s. Provide four weekly milestones with 2-3 bullet micro-tasks each. Keep it motivating and concise.",
		formatMonth(in.Month), orDefault(in.GoalContext, "general wellness"))
	return request("coach.monthly", withLanguage(user, in.Language))
}

// WeeklyRequest builds the weekly reflection request.
func WeeklyRequest(in WeeklyInput) gemini.Request {
	summary := "No week summaries provided."
	if len(in.Weeks) > 0 {
		summary = summarizeWeeks(in.Weeks, "no notes provided")
	}

	tail := "Offer one gentle reminder to stay consistent."
	if in.IncludeTasks {
		tail = "Also suggest 3 actionable weekly tasks that could become daily habits."
	}

	user := fmt.Sprintf("Help me reflect on the following weeks:\n%s\nReturn quick wins, lessons, and priorities. %s\nAdditional reflection notes: %s.",
		summary, tail, orDefault(in.ManualNotes, "none"))
	return request("coach.weekly", withLanguage(user, in.Language))
}

// DailyRequest builds the daily suggestions request.
func DailyRequest(in DailyInput) gemini.Request {
	var lines []string
	for _, t := range in.Tasks {
		if t = strings.TrimSpace(t); t != "" {
			lines = append(lines, "- "+t)
		}
	}
	taskList := strings.Join(lines, "\n")
	if taskList == "" {
		taskList = "- General wellness tasks"
	}

	user := fmt.Sprintf("Create an ordered action plan for %s. Tasks:\n%s\nSchedule context: %s.\nReturn a numbered list with suggested timing and motivational note at the end.",
		formatDate(in.Date), taskList, orDefault(in.Schedule, "flexible day"))
	return request("coach.daily", withLanguage(user, in.Language))
}

// MotivationRequest builds the motivation request.
func MotivationRequest(in MotivationInput) gemini.Request {
	tasks := strings.Join(nonEmpty(in.Tasks), ", ")
	user := fmt.Sprintf("I need a motivational boost. Current mood/context: %s. Key tasks today: %s.\nProvide one short pep talk and one quote aligned with the tasks.",
		orDefault(in.Mood, "not specified"), orDefault(tasks, "general to-do list"))

	req := request("coach.motivation", withLanguage(user, in.Language))
	req.Temperature = gemini.Float(motivationTemperature)
	req.MaxOutputTokens = motivationMaxTokens
	return req
}

func request(purpose, user string) gemini.Request {
	return gemini.Request{System: baseSystemPrompt, User: user, Purpose: purpose}
}

// =============================================================================
// HELPERS
// =============================================================================

func withLanguage(prompt, language string) string {
	if language == "ar" {
		return prompt + arabicInstruction
	}
	return prompt
}

func summarizeWeeks(weeks []WeekSummary, missingNotes string) string {
	lines := make([]string, 0, len(weeks))
	for i, w := range weeks {
		if w.Title != "" {
			lines = append(lines, fmt.Sprintf("%s: wins=%s, challenges=%s",
				w.Title, orDefault(w.Achieved, "n/a"), orDefault(w.Challenges, "n/a")))
			continue
		}
		n := w.Week
		if n == 0 {
			n = i + 1
		}
		lines = append(lines, fmt.Sprintf("Week %d: %s", n, orDefault(w.Notes, missingNotes)))
	}
	return strings.Join(lines, "\n")
}

// formatMonth renders "2025-03" as "March 2025".
func formatMonth(month string) string {
	if strings.TrimSpace(month) == "" {
		return "the upcoming month"
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

// formatDate renders "2025-03-03" as "Monday, Mar 3".
func formatDate(date string) string {
	if strings.TrimSpace(date) == "" {
		return "today"
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, Jan 2")
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return fallback
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
