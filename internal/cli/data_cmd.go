// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// data_cmd.go - Data manager: overview, raw records, export, import, clear.
//
// USAGE:
//
//	habitrun data [overview]
//	habitrun data show <collection> [--limit N]
//	habitrun data export [--format json|yaml] [--file PATH]
//	habitrun data import <path> [--format json|yaml] [--yes]
//	habitrun data clear <collection> [--yes]

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/habitrun/internal/tracker"
	"github.com/jeranaias/habitrun/internal/util"
)

const dataUsage = "[overview|show <collection>|export [--format json|yaml] [--file PATH]|import <path>|clear <collection>]"

// HandleData handles "habitrun data".
func (a *App) HandleData(ctx context.Context) error {
	p := NewArgParser(a.Args.Raw, "json", "yes", "y")

	switch p.Subcommand() {
	case "", "overview", "ls":
		return a.dataOverview(ctx, p)
	case "show", "view":
		return a.dataShow(ctx, p)
	case "export":
		return a.dataExport(ctx, p)
	case "import":
		return a.dataImport(ctx, p)
	case "clear":
		return a.dataClear(ctx, p)
	}
	return usage("data", dataUsage)
}

func (a *App) dataOverview(ctx context.Context, p *ArgParser) error {
	cols, err := a.Tracker.Overview(ctx)
	if err != nil {
		return err
	}
	return a.emit(p, "data", cols, func() {
		a.println(TitleStyle.Render("Stored data"))
		a.println(RenderSeparator())
		for _, c := range cols {
			a.printf("  %s %s %s\n",
				util.PadWidth(c.Label, 16),
				DimStyle.Render(util.PadWidth(c.Name, 14)),
				ValueStyle.Render(fmt.Sprintf("%d", c.Count)))
		}
	})
}

func (a *App) dataShow(ctx context.Context, p *ArgParser) error {
	name := p.Positional(1)
	if name == "" {
		return usage("data", "show <collection> [--limit N]")
	}
	docs, err := a.Tracker.Records(ctx, name)
	if err != nil {
		return err
	}
	if limit := p.FlagIntOrDefault("limit", 0); limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	records := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.Data)
	}
	if a.jsonMode(p) {
		return NewJSONResponse("data show", records).Print(a.out)
	}

	body, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return a.writeSource(string(body)+"\n", "json")
}

func (a *App) dataExport(ctx context.Context, p *ArgParser) error {
	path := p.Flag("file")
	format, err := tracker.ParseFormat(formatFor(p.Flag("format"), path))
	if err != nil {
		return NewValidationError("format", p.Flag("format"), "must be json or yaml")
	}

	var buf bytes.Buffer
	if err := a.Tracker.Export(ctx, &buf, format); err != nil {
		return err
	}

	if path == "" {
		return a.writeSource(buf.String(), string(format))
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return a.emit(p, "data export", map[string]string{"file": path, "format": string(format)}, func() {
		a.success("Exported to %s", path)
	})
}

func (a *App) dataImport(ctx context.Context, p *ArgParser) error {
	path := util.FirstNonEmpty(p.Flag("file"), p.Positional(1))
	if path == "" {
		return usage("data", "import <path> [--format json|yaml] [--yes]")
	}
	format, err := tracker.ParseFormat(formatFor(p.Flag("format"), path))
	if err != nil {
		return NewValidationError("format", p.Flag("format"), "must be json or yaml")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()

	ok, err := a.confirm(p, "Importing replaces every collection present in "+filepath.Base(path)+". Continue?")
	if err != nil {
		return err
	}
	if !ok {
		a.println(DimStyle.Render("Import canceled."))
		return nil
	}

	counts, err := a.Tracker.Import(ctx, f, format)
	if err != nil {
		return err
	}
	return a.emit(p, "data import", counts, func() {
		a.success("Imported %s", describeCounts(counts))
	})
}

func (a *App) dataClear(ctx context.Context, p *ArgParser) error {
	name := p.Positional(1)
	if name == "" {
		return usage("data", "clear <collection> [--yes]")
	}
	c, err := tracker.CollectionByName(name)
	if err != nil {
		return err
	}
	ok, err := a.confirm(p, "Delete every record in "+c.Label+"?")
	if err != nil {
		return err
	}
	if !ok {
		a.println(DimStyle.Render("Nothing deleted."))
		return nil
	}
	if err := a.Tracker.Clear(ctx, c.Name); err != nil {
		return err
	}
	return a.emit(p, "data clear", map[string]string{"cleared": c.Name}, func() {
		a.success("%s cleared", c.Label)
	})
}

// writeSource prints JSON or YAML, highlighted on a terminal.
func (a *App) writeSource(source, language string) error {
	if a.out == os.Stdout && ColorsEnabled() && !a.Config.UI.Plain {
		return Highlight(a.out, source, language)
	}
	_, err := fmt.Fprint(a.out, source)
	return err
}

// formatFor picks the explicit format, else guesses from the file
// extension, else JSON.
func formatFor(flag, path string) string {
	if flag != "" {
		return flag
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return string(tracker.FormatYAML)
	}
	return string(tracker.FormatJSON)
}

func describeCounts(counts map[string]int) string {
	var parts []string
	for _, c := range tracker.Collections() {
		if n, ok := counts[c.Name]; ok {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(c.Label)))
		}
	}
	if len(parts) == 0 {
		return "nothing"
	}
	return strings.Join(parts, ", ")
}
