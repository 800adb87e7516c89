// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package label reads product labels: it asks the model to transcribe the
// ingredient list and nutrition facts from a photo, recovers a structured
// analysis from the answer and scores it.
package label

import (
	"strings"
)

// Effect is the health effect class of an ingredient.
type Effect string

const (
	Good    Effect = "Good"
	Bad     Effect = "Bad"
	Neutral Effect = "Neutral"
	Unknown Effect = "Unknown"
)

// NormalizeEffect maps free text onto an Effect by case-insensitive
// substring match. Good keywords are checked first: good, great, benefit,
// positive.
func NormalizeEffect(s string) Effect {
	v := strings.ToLower(s)
	switch {
	case strings.Contains(v, "good"), strings.Contains(v, "great"),
		strings.Contains(v, "benefit"), strings.Contains(v, "positive"):
		return Good
	case strings.Contains(v, "bad"), strings.Contains(v, "avoid"), strings.Contains(v, "harm"):
		return Bad
	case strings.Contains(v, "neutral"), strings.Contains(v, "moderate"):
		return Neutral
	default:
		return Unknown
	}
}

// Ingredient is one transcribed ingredient.
type Ingredient struct {
	Name   string `json:"name" yaml:"name"`
	Effect Effect `json:"effect" yaml:"effect"`
	Note   string `json:"note" yaml:"note"`
}

// Nutrition holds per-serving facts. Nil means not printed or unreadable.
type Nutrition struct {
	Calories *float64 `json:"calories" yaml:"calories"`
	SugarG   *float64 `json:"sugar_g" yaml:"sugar_g"`
	SatFatG  *float64 `json:"sat_fat_g" yaml:"sat_fat_g"`
	SodiumMg *float64 `json:"sodium_mg" yaml:"sodium_mg"`
	ProteinG *float64 `json:"protein_g" yaml:"protein_g"`
	FiberG   *float64 `json:"fiber_g" yaml:"fiber_g"`
}

// Empty reports whether no value is set.
func (n *Nutrition) Empty() bool {
	return n == nil || (n.Calories == nil && n.SugarG == nil && n.SatFatG == nil &&
		n.SodiumMg == nil && n.ProteinG == nil && n.FiberG == nil)
}

// Analysis is the recovered reading of a label.
type Analysis struct {
	Summary     string       `json:"summary" yaml:"summary"`
	Ingredients []Ingredient `json:"ingredients" yaml:"ingredients"`
	Nutrition   *Nutrition   `json:"nutrition,omitempty" yaml:"nutrition,omitempty"`
}

// Counts returns the number of ingredients per effect.
func (a Analysis) Counts() map[Effect]int {
	counts := map[Effect]int{Good: 0, Bad: 0, Neutral: 0, Unknown: 0}
	for _, ing := range a.Ingredients {
		counts[ing.Effect]++
	}
	return counts
}
