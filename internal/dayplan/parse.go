// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dayplan asks the model for a one-day schedule and recovers a task
// list from whatever it answers.
package dayplan

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jeranaias/habitrun/internal/recovery"
)

// Task is one suggested item of a day plan.
type Task struct {
	Label string `json:"label" yaml:"label"`
	Time  string `json:"time" yaml:"time"`
	Notes string `json:"notes" yaml:"notes"`
}

// Plan is the task list for one calendar date (YYYY-MM-DD).
type Plan struct {
	Date     string `json:"date" yaml:"date"`
	Tasks    []Task `json:"tasks" yaml:"tasks"`
	Strategy string `json:"-" yaml:"-"`
}

// ComposeLabel renders a task as "time label (notes)", skipping empty parts.
func ComposeLabel(t Task) string {
	parts := make([]string, 0, 3)
	if t.Time != "" {
		parts = append(parts, t.Time)
	}
	if t.Label != "" {
		parts = append(parts, t.Label)
	}
	if t.Notes != "" {
		parts = append(parts, "("+t.Notes+")")
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// =============================================================================
// PARSING
// =============================================================================

// Parse recovers tasks from model output. It returns the name of the
// strategy that succeeded; text with no usable content is an error wrapping
// recovery.ErrNothingRecovered.
func Parse(text string) ([]Task, string, error) {
	return recovery.Run(recovery.StripCodeFences(text), Strategies()...)
}

// Strategies returns the parsing strategies in the order they are tried.
func Strategies() []recovery.Strategy[[]Task] {
	return []recovery.Strategy[[]Task]{
		{Name: "json", Parse: parseWhole},
		{Name: "object", Parse: parseObject},
		{Name: "array", Parse: parseArray},
		{Name: "lines", Parse: parseLines},
	}
}

func parseWhole(text string) ([]Task, bool) {
	v, ok := recovery.ParseJSON(text)
	if !ok {
		return nil, false
	}
	return fromJSON(v)
}

func parseObject(text string) ([]Task, bool) {
	obj, ok := recovery.ExtractObject(text)
	if !ok {
		return nil, false
	}
	return parseWhole(obj)
}

func parseArray(text string) ([]Task, bool) {
	arr, ok := recovery.ExtractArray(text)
	if !ok {
		return nil, false
	}
	return parseWhole(arr)
}

// parseLines treats every non-empty line, or ';' separated piece, as a task.
func parseLines(text string) ([]Task, bool) {
	var tasks []Task
	for _, line := range recovery.Lines(text, ";") {
		if label := recovery.StripBullet(line); label != "" {
			tasks = append(tasks, Task{Label: label})
		}
	}
	return tasks, len(tasks) > 0
}

// fromJSON accepts a top-level array or an object with a "tasks" array.
// A candidate with no usable items does not count.
func fromJSON(v gjson.Result) ([]Task, bool) {
	var items gjson.Result
	switch {
	case v.IsArray():
		items = v
	case v.IsObject() && v.Get("tasks").IsArray():
		items = v.Get("tasks")
	default:
		return nil, false
	}

	var tasks []Task
	items.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		t := Task{
			Label: recovery.FirstString(item, "label", "title", "goal"),
			Time:  recovery.FirstString(item, "time", "duration"),
			Notes: recovery.FirstString(item, "notes", "tip"),
		}
		if t.Label != "" {
			tasks = append(tasks, t)
		}
		return true
	})
	return tasks, len(tasks) > 0
}
