// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stats_cmd.go - Assistant status and generation usage.
//
// USAGE:
//
//	habitrun stats [--days N]        Daily usage for the last N days (default 7)
//	habitrun stats --prune DAYS      Delete usage files older than DAYS days
//	habitrun stats --prometheus      Metrics of this process in text format

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/habitrun/internal/telemetry"
	"github.com/jeranaias/habitrun/internal/tracker"
	"github.com/jeranaias/habitrun/internal/util"
)

const defaultStatsDays = 7

// StatsData is the JSON form of the stats command.
type StatsData struct {
	Profile     string                 `json:"profile"`
	Model       string                 `json:"model"`
	KeySet      bool                   `json:"key_set"`
	Offline     bool                   `json:"offline"`
	Reachable   bool                   `json:"reachable"`
	TaskTimeout string                 `json:"task_timeout"`
	Days        []telemetry.DailyUsage `json:"days"`
	Totals      telemetry.DailyUsage   `json:"totals"`
	Records     map[string]int         `json:"records"`
}

// HandleStats handles "habitrun stats".
func (a *App) HandleStats(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json", "prometheus")

	if p.BoolFlag("prometheus") {
		return a.Metrics.WriteText(a.out)
	}
	if p.HasFlag("prune") {
		days, err := p.FlagInt("prune")
		if err != nil || days < 1 {
			return NewValidationError("prune", p.Flag("prune"), "must be a number of days (1 or more)")
		}
		n, err := a.Usage.DeleteBefore(time.Now().AddDate(0, 0, -days))
		if err != nil {
			return err
		}
		return a.emit(p, "stats", map[string]int{"deleted": n}, func() {
			a.success("Deleted %d usage files", n)
		})
	}

	days := p.FlagIntOrDefault("days", defaultStatsDays)
	if days < 1 {
		return NewValidationError("days", p.Flag("days"), "must be 1 or more")
	}

	// Flush first so calls made by this process show up.
	if err := a.Usage.Flush(); err != nil {
		return err
	}
	now := time.Now()
	usage, err := a.Usage.Range(now.AddDate(0, 0, -(days - 1)), now)
	if err != nil {
		return err
	}

	key, err := a.Settings.APIKey(ctx)
	if err != nil {
		return err
	}
	model, err := a.Settings.Model(ctx)
	if err != nil {
		return err
	}
	records, err := a.Tracker.Overview(ctx)
	if err != nil {
		return err
	}

	data := StatsData{
		Profile:     a.Tracker.Profile(),
		Model:       model,
		KeySet:      key != "",
		Offline:     a.Monitor.IsOffline(),
		TaskTimeout: a.Config.TaskTimeout().String(),
		Days:        usage,
		Records:     map[string]int{},
	}
	if !data.Offline {
		data.Reachable = a.Monitor.Probe(ctx)
	}
	for _, d := range usage {
		data.Totals.Calls += d.Calls
		data.Totals.Failures += d.Failures
		data.Totals.Retries += d.Retries
		data.Totals.PromptTokens += d.PromptTokens
		data.Totals.CandidateTokens += d.CandidateTokens
	}
	for _, c := range records {
		data.Records[c.Name] = c.Count
	}

	return a.emit(p, "stats", data, func() { a.printStats(data, days) })
}

func (a *App) printStats(data StatsData, days int) {
	a.println(TitleStyle.Render("habitrun status"))
	a.println(RenderSeparator())

	assistant := SuccessStyle.Render("online")
	switch {
	case data.Offline:
		assistant = WarningStyle.Render("offline (forced)")
	case !data.Reachable:
		assistant = WarningStyle.Render("unreachable")
	}
	keyState := SuccessStyle.Render("set")
	if !data.KeySet {
		keyState = ErrorStyle.Render("missing (run: habitrun setup)")
	}

	a.printf("%s %s\n", RenderLabel("Profile"), data.Profile)
	a.printf("%s %s\n", RenderLabel("Model"), data.Model)
	a.printf("%s %s\n", RenderLabel("API key"), keyState)
	a.printf("%s %s\n", RenderLabel("Assistant"), assistant)
	a.printf("%s %s\n", RenderLabel("Task timeout"), data.TaskTimeout)

	a.println()
	a.println(SectionStyle.Render(fmt.Sprintf("Usage, last %d days", days)))
	if len(data.Days) == 0 {
		a.println(DimStyle.Render("  No AI requests recorded."))
	}
	for _, d := range data.Days {
		a.printf("  %s  %s calls  %s failed  %s retried  %s tokens\n",
			formatUsageDay(d.Date),
			util.PadWidth(fmt.Sprintf("%d", d.Calls), 4),
			util.PadWidth(fmt.Sprintf("%d", d.Failures), 3),
			util.PadWidth(fmt.Sprintf("%d", d.Retries), 3),
			fmt.Sprintf("%d", d.PromptTokens+d.CandidateTokens))
	}
	if len(data.Days) > 1 {
		a.printf("  %s  %d calls, %d failed, %d tokens\n",
			LabelStyle.Render("total     "), data.Totals.Calls, data.Totals.Failures,
			data.Totals.PromptTokens+data.Totals.CandidateTokens)
	}

	a.println()
	a.println(SectionStyle.Render("Records"))
	for _, c := range tracker.Collections() {
		a.printf("  %s %d\n", util.PadWidth(c.Label, 16), data.Records[c.Name])
	}
}

// formatUsageDay renders YYYYMMDD as YYYY-MM-DD.
func formatUsageDay(day string) string {
	t, err := time.Parse("20060102", day)
	if err != nil {
		return day
	}
	return t.Format("2006-01-02")
}
