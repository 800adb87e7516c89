// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package label

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/habitrun/internal/recovery"
)

// ErrParseRecovery means the answer held neither ingredients nor nutrition.
var ErrParseRecovery = errors.New("could not read the label, try another photo")

// ParseOptions tunes Parse.
type ParseOptions struct {
	// AllowEmpty accepts an explicit JSON answer with an empty ingredient
	// list as "nothing detected" instead of failing.
	AllowEmpty bool

	// Language selects the collation used to sort ingredient names.
	Language string
}

// Parse recovers an analysis from model output and orders its ingredients.
// It also returns the name of the strategy that succeeded.
func Parse(text string, opts ParseOptions) (Analysis, string, error) {
	a, strategy, err := recovery.Run(recovery.StripCodeFences(text), Strategies(opts)...)
	if err != nil {
		return Analysis{}, "", fmt.Errorf("%w: %w", ErrParseRecovery, err)
	}
	Order(a.Ingredients, opts.Language)
	return a, strategy, nil
}

// Strategies returns the parsing strategies in the order they are tried.
func Strategies(opts ParseOptions) []recovery.Strategy[Analysis] {
	accept := func(a Analysis, explicit bool) (Analysis, bool) {
		if len(a.Ingredients) > 0 || !a.Nutrition.Empty() {
			return a, true
		}
		return a, explicit && opts.AllowEmpty
	}

	whole := func(text string) (Analysis, bool) {
		v, ok := recovery.ParseJSON(text)
		if !ok {
			return Analysis{}, false
		}
		return accept(fromJSON(v))
	}

	return []recovery.Strategy[Analysis]{
		{Name: "json", Parse: whole},
		{Name: "object", Parse: func(text string) (Analysis, bool) {
			obj, ok := recovery.ExtractObject(text)
			if !ok {
				return Analysis{}, false
			}
			return whole(obj)
		}},
		{Name: "ingredients-array", Parse: func(text string) (Analysis, bool) {
			arr, ok := recovery.ExtractNamedArray(text, "ingredients")
			if !ok {
				return Analysis{}, false
			}
			v, ok := recovery.ParseJSON(arr)
			if !ok || !v.IsArray() {
				return Analysis{}, false
			}
			return accept(Analysis{Ingredients: items(v)}, true)
		}},
		{Name: "lines", Parse: func(text string) (Analysis, bool) {
			return accept(Analysis{Ingredients: parseLines(text)}, false)
		}},
	}
}

// fromJSON reads an object {summary, ingredients, nutrition} or a bare
// ingredient array. explicit is true when the answer carried an ingredient
// array, even an empty one.
func fromJSON(v gjson.Result) (Analysis, bool) {
	if v.IsArray() {
		return Analysis{Ingredients: items(v)}, true
	}
	if !v.IsObject() {
		return Analysis{}, false
	}

	a := Analysis{
		Summary:   recovery.FirstString(v, "summary", "overview"),
		Nutrition: nutrition(v.Get("nutrition")),
	}
	list := v.Get("ingredients")
	if list.IsArray() {
		a.Ingredients = items(list)
	}
	return a, list.IsArray()
}

func items(arr gjson.Result) []Ingredient {
	var out []Ingredient
	arr.ForEach(func(_, item gjson.Result) bool {
		if ing, ok := ingredient(item); ok {
			out = append(out, ing)
		}
		return true
	})
	return out
}

func ingredient(item gjson.Result) (Ingredient, bool) {
	if !item.IsObject() {
		return Ingredient{}, false
	}
	name := norm.NFC.String(recovery.FirstString(item, "name", "ingredient"))
	if name == "" {
		return Ingredient{}, false
	}
	return Ingredient{
		Name:   name,
		Effect: NormalizeEffect(item.Get("effect").String()),
		Note:   recovery.FirstString(item, "note", "description"),
	}, true
}

// nutritionKeys lists accepted spellings per field.
var nutritionKeys = struct {
	calories, sugar, satFat, sodium, protein, fiber []string
}{
	calories: []string{"calories", "kcal", "energy_kcal"},
	sugar:    []string{"sugar_g", "sugars_g", "sugar"},
	satFat:   []string{"sat_fat_g", "saturated_fat_g", "saturated_fat"},
	sodium:   []string{"sodium_mg", "sodium"},
	protein:  []string{"protein_g", "protein"},
	fiber:    []string{"fiber_g", "fibre_g", "fiber"},
}

// nutrition coerces each field to a number or nil. All nil means absent.
func nutrition(v gjson.Result) *Nutrition {
	if !v.IsObject() {
		return nil
	}
	n := &Nutrition{
		Calories: number(v, nutritionKeys.calories),
		SugarG:   number(v, nutritionKeys.sugar),
		SatFatG:  number(v, nutritionKeys.satFat),
		SodiumMg: number(v, nutritionKeys.sodium),
		ProteinG: number(v, nutritionKeys.protein),
		FiberG:   number(v, nutritionKeys.fiber),
	}
	if n.Empty() {
		return nil
	}
	return n
}

func number(v gjson.Result, keys []string) *float64 {
	for _, k := range keys {
		if f, ok := recovery.Number(v.Get(k)); ok {
			return &f
		}
	}
	return nil
}

var tripleDelims = regexp.MustCompile(`\s+-\s+|\s*[|–—]\s*`)

// parseLines reads one ingredient per line: a JSON object, or a
// "name - effect - note" triple ("|", "–" and "—" also separate). Lines
// without a delimiter are skipped.
func parseLines(text string) []Ingredient {
	var out []Ingredient
	for _, line := range recovery.Lines(text) {
		if obj, ok := recovery.ExtractObject(line); ok {
			if v, ok := recovery.ParseJSON(obj); ok {
				first := v
				if list := v.Get("ingredients"); list.IsArray() {
					first = list.Get("0")
				}
				if ing, ok := ingredient(first); ok {
					out = append(out, ing)
				}
				continue
			}
		}

		line = recovery.StripBullet(line)
		parts := tripleDelims.Split(line, -1)
		if len(parts) < 2 {
			continue
		}
		name := norm.NFC.String(strings.TrimSpace(parts[0]))
		if name == "" {
			continue
		}
		out = append(out, Ingredient{
			Name:   name,
			Effect: NormalizeEffect(parts[1]),
			Note:   strings.TrimSpace(strings.Join(parts[2:], " - ")),
		})
	}
	return out
}
