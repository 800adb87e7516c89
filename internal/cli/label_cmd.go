// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// label_cmd.go - Food label scanning.
//
// USAGE:
//
//	habitrun label <image> [--context TEXT] [--save]
//	habitrun label list
//	habitrun label delete <id>

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jeranaias/habitrun/internal/label"
	"github.com/jeranaias/habitrun/internal/tracker"
)

// LabelData is the JSON form of a scan.
type LabelData struct {
	Analysis label.Analysis     `json:"analysis"`
	Score    *label.HealthScore `json:"score,omitempty"`
	Strategy string             `json:"strategy"`
	SavedID  int64              `json:"saved_id,omitempty"`
}

// HandleLabel handles "habitrun label".
func (a *App) HandleLabel(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json", "save")

	switch p.Subcommand() {
	case "":
		return usage("label", "<image> [--context TEXT] [--save] | list | delete <id>")
	case "list", "ls", "history":
		if !fileExists(p.Positional(0)) {
			return a.listScans(ctx, p)
		}
	case "delete", "rm":
		if !fileExists(p.Positional(0)) {
			id, err := ParseID(p.Positional(1), "scan id")
			if err != nil {
				return err
			}
			if err := a.Tracker.DeleteScan(ctx, id); err != nil {
				return err
			}
			return a.emit(p, "label delete", map[string]int64{"deleted": id}, func() {
				a.success("Scan #%d deleted", id)
			})
		}
	}
	return a.scanLabel(ctx, p, p.Positional(0))
}

func (a *App) scanLabel(ctx context.Context, p *ArgParser, path string) error {
	img, err := label.LoadImage(path, label.ImageOptions{
		MaxDim:  a.Config.Label.MaxImageDim,
		Quality: a.Config.Label.JPEGQuality,
	})
	if err != nil {
		return err
	}

	var res label.Result
	err = a.withSpinner(p, "Reading label", func() error {
		var err error
		res, err = a.Scanner.Analyze(ctx, img, label.Options{
			Language: a.Language(),
			Context:  p.Flag("context"),
		})
		return err
	})
	if err != nil {
		return err
	}

	data := LabelData{Analysis: res.Analysis, Strategy: res.Strategy}
	if res.Scored {
		score := res.Score
		data.Score = &score
	}
	if p.BoolFlag("save") {
		scan, err := a.Tracker.SaveScan(ctx, res, filepath.Base(path))
		if err != nil {
			return err
		}
		data.SavedID = scan.ID
	}

	return a.emit(p, "label", data, func() {
		a.printAnalysis(res.Analysis, data.Score)
		if data.SavedID != 0 {
			a.success("Saved as scan #%d", data.SavedID)
		}
	})
}

func (a *App) printAnalysis(an label.Analysis, score *label.HealthScore) {
	a.println(TitleStyle.Render("Label analysis"))
	a.println(RenderSeparator())
	if score != nil {
		a.printf("%s %s\n", RenderLabel("Health score"), RenderRating(*score))
	} else {
		a.printf("%s %s\n", RenderLabel("Health score"), DimStyle.Render("not enough information"))
	}
	if an.Summary != "" {
		a.println()
		a.println(an.Summary)
	}

	if len(an.Ingredients) > 0 {
		a.println()
		a.println(SectionStyle.Render("Ingredients"))
		for _, ing := range an.Ingredients {
			note := ""
			if ing.Note != "" {
				note = DimStyle.Render("  " + ing.Note)
			}
			a.printf("  %s %s%s\n", RenderEffect(ing.Effect), ing.Name, note)
		}
	}

	if n := an.Nutrition; n != nil && !n.Empty() {
		a.println()
		a.println(SectionStyle.Render("Nutrition (per serving)"))
		for _, row := range []struct {
			name string
			v    *float64
			unit string
		}{
			{"Calories", n.Calories, "kcal"},
			{"Sugar", n.SugarG, "g"},
			{"Saturated fat", n.SatFatG, "g"},
			{"Sodium", n.SodiumMg, "mg"},
			{"Protein", n.ProteinG, "g"},
			{"Fiber", n.FiberG, "g"},
		} {
			if row.v != nil {
				a.printf("  %s %s\n", RenderLabel(fmt.Sprintf("%-14s", row.name)), fmt.Sprintf("%g %s", *row.v, row.unit))
			}
		}
	}
}

func (a *App) listScans(ctx context.Context, p *ArgParser) error {
	scans, err := a.Tracker.Scans(ctx)
	if err != nil {
		return err
	}
	return a.emit(p, "label list", scans, func() {
		a.println(TitleStyle.Render("Saved scans"))
		a.println(RenderSeparator())
		if len(scans) == 0 {
			a.println(DimStyle.Render("  No saved scans. Use: habitrun label <image> --save"))
			return
		}
		for _, s := range scans {
			a.printf("  %s  %s  %s  %s\n",
				DimStyle.Render(fmt.Sprintf("#%-4d", s.ID)),
				time.UnixMilli(s.CreatedAt).Format("2006-01-02 15:04"),
				scanRating(s),
				DimStyle.Render(s.Source))
		}
	})
}

func scanRating(s tracker.LabelScan) string {
	if s.Score == nil {
		return DimStyle.Render("unscored")
	}
	return RenderRating(*s.Score)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
