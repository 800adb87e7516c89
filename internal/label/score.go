// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package label

import "math"

// Ratings.
const (
	RatingSafer    = "Safer Choice"
	RatingCaution  = "Caution"
	RatingHighRisk = "High Risk"
)

// HealthScore is a 0-10 score with its rating.
type HealthScore struct {
	Score  float64 `json:"score" yaml:"score"`
	Rating string  `json:"rating" yaml:"rating"`
}

// effectWeight is the per-ingredient contribution.
var effectWeight = map[Effect]float64{
	Good:    1.5,
	Neutral: 0,
	Unknown: -0.25,
	Bad:     -2.5,
}

const (
	minWeight = -2.5
	maxWeight = 1.5

	ingredientShare = 0.6
	nutritionShare  = 0.4
)

// Score derives the health score. It reports false when the analysis has
// neither ingredients nor nutrition.
func Score(a Analysis) (HealthScore, bool) {
	ing, hasIng := IngredientScore(a.Ingredients)
	nut, hasNut := NutritionScore(a.Nutrition)

	var score float64
	switch {
	case hasIng && hasNut:
		score = ingredientShare*ing + nutritionShare*nut
	case hasIng:
		score = ing
	case hasNut:
		score = nut
	default:
		return HealthScore{}, false
	}

	score = math.Round(clamp(score)*10) / 10
	return HealthScore{Score: score, Rating: Rating(score)}, true
}

// Rating maps a score onto its rating.
func Rating(score float64) string {
	switch {
	case score < 3.5:
		return RatingHighRisk
	case score > 7.5:
		return RatingSafer
	default:
		return RatingCaution
	}
}

// IngredientScore is the mean effect weight rescaled from [-2.5, 1.5] to
// [0, 10].
func IngredientScore(items []Ingredient) (float64, bool) {
	if len(items) == 0 {
		return 0, false
	}
	var sum float64
	for _, it := range items {
		w, ok := effectWeight[it.Effect]
		if !ok {
			w = effectWeight[Unknown]
		}
		sum += w
	}
	mean := sum / float64(len(items))
	return clamp((mean - minWeight) / (maxWeight - minWeight) * 10), true
}

// band adjusts the score by delta when the value crosses a threshold.
type band struct {
	atLeast bool
	limit   float64
	delta   float64
}

// First matching band wins per nutrient.
var (
	sugarBands   = []band{{true, 22.5, -2.5}, {true, 10, -1.5}, {true, 5, -0.5}, {false, 2, 0.5}}
	satFatBands  = []band{{true, 5, -2}, {true, 3, -1}, {false, 1, 0.5}}
	sodiumBands  = []band{{true, 600, -2}, {true, 400, -1}, {false, 120, 0.5}}
	calorieBands = []band{{true, 400, -1.5}, {true, 250, -0.5}, {false, 100, 0.5}}
	fiberBands   = []band{{true, 6, 1}, {true, 3, 0.5}}
	proteinBands = []band{{true, 10, 1}, {true, 5, 0.5}}
)

// NutritionScore starts at 5 and applies one band per known nutrient.
func NutritionScore(n *Nutrition) (float64, bool) {
	if n.Empty() {
		return 0, false
	}
	score := 5.0
	score += apply(n.SugarG, sugarBands)
	score += apply(n.SatFatG, satFatBands)
	score += apply(n.SodiumMg, sodiumBands)
	score += apply(n.Calories, calorieBands)
	score += apply(n.FiberG, fiberBands)
	score += apply(n.ProteinG, proteinBands)
	return clamp(score), true
}

func apply(v *float64, bands []band) float64 {
	if v == nil {
		return 0
	}
	for _, b := range bands {
		if (b.atLeast && *v >= b.limit) || (!b.atLeast && *v <= b.limit) {
			return b.delta
		}
	}
	return 0
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(10, v))
}
