// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dayplan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/habitrun/internal/gemini"
)

const (
	systemPrompt = "You are an energetic productivity coach. Respond strictly with JSON when asked and keep descriptions concise."

	// MaxOutputTokens is the token budget for a plan.
	MaxOutputTokens = 700
)

// ErrParseRecovery means the model answered but no task list could be
// recovered from the text.
var ErrParseRecovery = errors.New("could not read a day plan from the response, try again")

// Input describes the day to plan.
type Input struct {
	Date     string
	Tasks    string
	Notes    string
	Language string
}

// Planner requests day plans from the model.
type Planner struct {
	gen gemini.Generator
}

// NewPlanner creates a planner on top of gen, normally a queued generator.
func NewPlanner(gen gemini.Generator) *Planner {
	return &Planner{gen: gen}
}

// Request asks for a plan and parses it.
func (p *Planner) Request(ctx context.Context, in Input) (Plan, error) {
	text, err := p.gen.Generate(ctx, BuildRequest(in))
	if err != nil {
		return Plan{}, err
	}

	tasks, strategy, err := Parse(text)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %w", ErrParseRecovery, err)
	}
	return Plan{Date: in.Date, Tasks: tasks, Strategy: strategy}, nil
}

// BuildRequest composes the JSON-only plan prompt.
func BuildRequest(in Input) gemini.Request {
	languageInstruction := "Respond ONLY with JSON in concise English. Do not add any explanation or Markdown outside the JSON."
	if in.Language == "ar" {
		languageInstruction = "Respond ONLY with JSON. Keep keys label/time/notes in English and use ASCII digits. The values may be Arabic sentences. Do not add any words outside the JSON or use Markdown."
	}

	tasks := strings.TrimSpace(in.Tasks)
	if tasks == "" {
		tasks = "none provided"
	}
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		notes = "general productivity"
	}

	user := fmt.Sprintf(
		`Create a JSON day planner for %s. Tasks to schedule: %s. Context: %s. %s Required JSON shape: {"tasks":[{"label":"task name","time":"HH:MM or short note","notes":"short tip"}]}. Skip empty entries.`,
		in.Date, tasks, notes, languageInstruction)

	return gemini.Request{
		System:          systemPrompt,
		User:            user,
		MaxOutputTokens: MaxOutputTokens,
		Purpose:         "dayplan",
	}
}
