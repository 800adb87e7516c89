// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package coach

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/logging"
	"github.com/jeranaias/habitrun/internal/offline"
)

// stubGen records requests and returns a fixed answer.
type stubGen struct {
	reqs []gemini.Request
	text string
	err  error
}

func (s *stubGen) Generate(ctx context.Context, req gemini.Request) (string, error) {
	s.reqs = append(s.reqs, req)
	return s.text, s.err
}

func newCoach(gen gemini.Generator, isOffline bool) *Coach {
	return New(gen, offline.Static(isOffline), logging.Discard())
}

func TestMonthlyPlan_Online(t *testing.T) {
	gen := &stubGen{text: "  Week 1: go  "}
	res, err := newCoach(gen, false).MonthlyPlan(context.Background(), MonthlyInput{Month: "2025-03", GoalContext: "strength"})
	require.NoError(t, err)
	assert.Equal(t, Result{Text: "Week 1: go"}, res)

	require.Len(t, gen.reqs, 1)
	req := gen.reqs[0]
	assert.Equal(t, baseSystemPrompt, req.System)
	assert.Contains(t, req.User, "Plan weekly milestones for March 2025.")
	assert.Contains(t, req.User, "Monthly focus: strength.")
	assert.Nil(t, req.Temperature)
	assert.Equal(t, "coach.monthly", req.Purpose)
}

func TestFallback_OnlyWhenOffline(t *testing.T) {
	boom := &gemini.HTTPError{Status: 500, Body: "boom"}

	_, err := newCoach(&stubGen{err: boom}, false).MonthlyPlan(context.Background(), MonthlyInput{})
	var httpErr *gemini.HTTPError
	require.ErrorAs(t, err, &httpErr)

	res, err := newCoach(&stubGen{err: &gemini.NetworkError{Err: errors.New("no route")}}, true).
		MonthlyPlan(context.Background(), MonthlyInput{})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.True(t, strings.HasPrefix(res.Text, "Monthly Plan (the upcoming month)"))
	assert.Contains(t, res.Text, "Focus: balance movement, nutrition, and recovery")
	assert.Contains(t, res.Text, "Week 4: celebrate + prep")
	assert.True(t, strings.HasSuffix(res.Text, fallbackNote))
}

func TestFallback_NetworkErrorRechecksConnectivity(t *testing.T) {
	var up atomic.Bool
	up.Store(true)
	mon := offline.NewMonitor(offline.Options{
		Addr: "generativelanguage.googleapis.com:443",
		TTL:  time.Hour,
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if !up.Load() {
				return nil, errors.New("network is unreachable")
			}
			client, server := net.Pipe()
			server.Close()
			return client, nil
		},
	})
	require.True(t, mon.Probe(context.Background()))

	// The connection drops while "reachable" is still cached.
	up.Store(false)
	gen := &stubGen{err: &gemini.NetworkError{Err: errors.New("connection reset")}}
	res, err := New(gen, mon, logging.Discard()).Motivation(context.Background(), MotivationInput{})
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.True(t, mon.IsOffline())
}

func TestFallback_HTTPErrorSkipsConnectivityCheck(t *testing.T) {
	var dials atomic.Int32
	mon := offline.NewMonitor(offline.Options{
		Addr: "generativelanguage.googleapis.com:443",
		TTL:  time.Hour,
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dials.Add(1)
			client, server := net.Pipe()
			server.Close()
			return client, nil
		},
	})
	require.True(t, mon.Probe(context.Background()))

	gen := &stubGen{err: &gemini.HTTPError{Status: 500, Body: "boom"}}
	_, err := New(gen, mon, logging.Discard()).Motivation(context.Background(), MotivationInput{})
	require.Error(t, err)
	assert.Equal(t, int32(1), dials.Load())
}

func TestFallback_ArabicFootnote(t *testing.T) {
	res, err := newCoach(&stubGen{err: errors.New("down")}, true).
		Motivation(context.Background(), MotivationInput{Language: "ar"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Text, fallbackNote+"\n"+fallbackNoteAr))
	assert.Contains(t, res.Text, "your planned actions")
	assert.Contains(t, res.Text, "Augusta F. Kantra")
}

func TestLanguageInstruction(t *testing.T) {
	gen := &stubGen{text: "ok"}
	c := newCoach(gen, false)
	ctx := context.Background()

	_, _ = c.MonthlyPlan(ctx, MonthlyInput{Language: "ar"})
	_, _ = c.WeeklyReflection(ctx, WeeklyInput{Language: "ar"})
	_, _ = c.DailySuggestions(ctx, DailyInput{Language: "ar"})
	_, _ = c.Motivation(ctx, MotivationInput{Language: "ar"})
	_, _ = c.Motivation(ctx, MotivationInput{Language: "en"})

	require.Len(t, gen.reqs, 5)
	for _, req := range gen.reqs[:4] {
		assert.True(t, strings.HasSuffix(req.User, "\nRespond in Arabic using friendly motivational tone."), req.Purpose)
	}
	assert.NotContains(t, gen.reqs[4].User, "Arabic")
}

func TestWeeklyRequest(t *testing.T) {
	req := WeeklyRequest(WeeklyInput{
		Weeks: []WeekSummary{
			{Title: "Run 3x", Achieved: "ran twice"},
			{Notes: "busy week"},
			{Week: 7},
		},
		IncludeTasks: true,
		ManualNotes:  "sleep better",
	})

	assert.Contains(t, req.User, "Run 3x: wins=ran twice, challenges=n/a")
	assert.Contains(t, req.User, "Week 2: busy week")
	assert.Contains(t, req.User, "Week 7: no notes provided")
	assert.Contains(t, req.User, "Also suggest 3 actionable weekly tasks")
	assert.Contains(t, req.User, "Additional reflection notes: sleep better.")

	empty := WeeklyRequest(WeeklyInput{})
	assert.Contains(t, empty.User, "No week summaries provided.")
	assert.Contains(t, empty.User, "Offer one gentle reminder")
	assert.Contains(t, empty.User, "Additional reflection notes: none.")
}

func TestDailyRequest(t *testing.T) {
	req := DailyRequest(DailyInput{Date: "2025-03-03", Tasks: []string{"Walk", " ", "Read"}})
	assert.Contains(t, req.User, "Create an ordered action plan for Monday, Mar 3.")
	assert.Contains(t, req.User, "Tasks:\n- Walk\n- Read\n")
	assert.Contains(t, req.User, "Schedule context: flexible day.")

	none := DailyRequest(DailyInput{})
	assert.Contains(t, none.User, "for today.")
	assert.Contains(t, none.User, "- General wellness tasks")
}

func TestMotivationRequest(t *testing.T) {
	req := MotivationRequest(MotivationInput{Tasks: []string{"gym", "water"}, Mood: "tired"})
	require.NotNil(t, req.Temperature)
	assert.Equal(t, 0.85, *req.Temperature)
	assert.Equal(t, 180, req.MaxOutputTokens)
	assert.Contains(t, req.User, "Current mood/context: tired.")
	assert.Contains(t, req.User, "Key tasks today: gym, water.")
}

func TestFallbackTemplates(t *testing.T) {
	weekly := fallbackWeeklyReflection(WeeklyInput{IncludeTasks: true, ManualNotes: "more sleep"})
	assert.Contains(t, weekly, "Weekly Reflection Template")
	assert.Contains(t, weekly, "No week info captured")
	assert.Contains(t, weekly, "Extra notes: more sleep")
	assert.Contains(t, weekly, "• Share goals with an accountability buddy")

	daily := fallbackDailySuggestions("Monday, Mar 3", []string{"Walk", "Stretch"}, "", "en")
	assert.Contains(t, daily, "Daily Plan (Monday, Mar 3)")
	assert.Contains(t, daily, "Schedule notes: flexible")
	assert.Contains(t, daily, "1. Walk\n2. Stretch")

	dailyEmpty := fallbackDailySuggestions("today", nil, "busy", "en")
	assert.Contains(t, dailyEmpty, "1. Hydration anchoring")
	assert.Contains(t, dailyEmpty, "Schedule notes: busy")

	motivation := fallbackMotivation([]string{"gym"}, "", "en")
	assert.Contains(t, motivation, "Mood: unspecified")
	assert.Contains(t, motivation, "You've already committed to gym.")
}

func TestFormatDateAndMonth(t *testing.T) {
	assert.Equal(t, "March 2025", formatMonth("2025-03"))
	assert.Equal(t, "the upcoming month", formatMonth(""))
	assert.Equal(t, "13/2025", formatMonth("13/2025"))
	assert.Equal(t, "Monday, Mar 3", formatDate("2025-03-03"))
	assert.Equal(t, "today", formatDate(""))
	assert.Equal(t, "someday", formatDate("someday"))
}

func TestClean(t *testing.T) {
	in := "## Week 1\r\n**Focus** on sleep\n* walk daily  \n- drink water\n\n\n\n  + stretch\n"
	want := "Week 1\nFocus on sleep\n• walk daily\n• drink water\n\n  • stretch"
	assert.Equal(t, want, Clean(in))
}
