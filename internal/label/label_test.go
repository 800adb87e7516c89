// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package label

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/recovery"
)

func f(v float64) *float64 { return &v }

// =============================================================================
// EFFECTS AND ORDERING
// =============================================================================

func TestNormalizeEffect(t *testing.T) {
	tests := map[string]Effect{
		"Good":                   Good,
		"beneficial":             Good,
		"POSITIVE impact":        Good,
		"Great for skin":         Good,
		"bad":                    Bad,
		"Avoid if possible":      Bad,
		"Avoid – may cause harm": Bad,
		"harmful":                Bad,
		"Neutral":                Neutral,
		"moderate":               Neutral,
		"":                       Unknown,
		"unclear":                Unknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeEffect(in), in)
	}
}

func TestOrder_GroupsByCountWithTieBreak(t *testing.T) {
	items := []Ingredient{
		{Name: "Oats", Effect: Good},
		{Name: "sugar", Effect: Bad},
		{Name: "Almonds", Effect: Good},
		{Name: "Salt", Effect: Neutral},
		{Name: "Palm oil", Effect: Bad},
		{Name: "E471", Effect: Unknown},
	}
	Order(items, "en")

	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	// Bad and Good tie at 2: Bad first. Neutral and Unknown tie at 1.
	assert.Equal(t, []string{"Palm oil", "sugar", "Almonds", "Oats", "Salt", "E471"}, names)
}

func TestOrder_LargestGroupFirst(t *testing.T) {
	items := []Ingredient{
		{Name: "Sugar", Effect: Bad},
		{Name: "Water", Effect: Neutral},
		{Name: "Fiber", Effect: Good},
		{Name: "Apple", Effect: Good},
		{Name: "Zinc", Effect: Good},
	}
	Order(items, "")
	assert.Equal(t, "Apple", items[0].Name)
	assert.Equal(t, "Zinc", items[2].Name)
	assert.Equal(t, "Sugar", items[3].Name)
	assert.Equal(t, "Water", items[4].Name)
}

// =============================================================================
// PARSING
// =============================================================================

func TestParse_JSONObject(t *testing.T) {
	text := "```json\n" + `{"summary":"Sweet snack","ingredients":[
		{"name":"Sugar","effect":"bad","note":"added sugar"},
		{"ingredient":"Oats","effect":"beneficial","description":"whole grain"},
		{"name":"  ","effect":"good"}
	],"nutrition":{"calories":"210 kcal","sugar_g":12,"sat_fat_g":null,"sodium_mg":"1,150 mg","protein_g":"n/a"}}` + "\n```"

	a, strategy, err := Parse(text, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "json", strategy)
	assert.Equal(t, "Sweet snack", a.Summary)
	require.Len(t, a.Ingredients, 2)
	assert.Equal(t, Ingredient{Name: "Sugar", Effect: Bad, Note: "added sugar"}, a.Ingredients[0])
	assert.Equal(t, Ingredient{Name: "Oats", Effect: Good, Note: "whole grain"}, a.Ingredients[1])

	require.NotNil(t, a.Nutrition)
	assert.InDelta(t, 210, *a.Nutrition.Calories, 1e-9)
	assert.InDelta(t, 12, *a.Nutrition.SugarG, 1e-9)
	assert.InDelta(t, 1150, *a.Nutrition.SodiumMg, 1e-9)
	assert.Nil(t, a.Nutrition.SatFatG)
	assert.Nil(t, a.Nutrition.ProteinG)
}

func TestParse_AllNullNutritionIsAbsent(t *testing.T) {
	a, _, err := Parse(`{"ingredients":[{"name":"Water","effect":"neutral"}],"nutrition":{"calories":null,"sugar_g":"unknown"}}`, ParseOptions{})
	require.NoError(t, err)
	assert.Nil(t, a.Nutrition)
}

func TestParse_NutritionOnly(t *testing.T) {
	a, _, err := Parse(`{"ingredients":[],"nutrition":{"sugar_g":3}}`, ParseOptions{})
	require.NoError(t, err)
	assert.Empty(t, a.Ingredients)
	require.NotNil(t, a.Nutrition)
}

func TestParse_ObjectInProse(t *testing.T) {
	a, strategy, err := Parse(`I found: {"ingredients":[{"name":"Salt","effect":"Neutral"}]} hope it helps`, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "object", strategy)
	assert.Equal(t, "Salt", a.Ingredients[0].Name)
}

func TestParse_IngredientsArray(t *testing.T) {
	text := `{"ingredients": [{"name":"Milk","effect":"good"}, {"name":"Cocoa","effect":"neutral"}], "nutrition": {oops}`
	a, strategy, err := Parse(text, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ingredients-array", strategy)
	assert.Len(t, a.Ingredients, 2)
}

func TestParse_Lines(t *testing.T) {
	text := "Ingredients found:\n" +
		"- Sugar - Bad - raises blood sugar\n" +
		"Whole-grain oats | good | fiber\n" +
		"Salt — moderate\n" +
		`{"name":"Vitamin C","effect":"beneficial"}` + "\n" +
		"Thanks for asking"

	a, strategy, err := Parse(text, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "lines", strategy)

	byName := map[string]Ingredient{}
	for _, it := range a.Ingredients {
		byName[it.Name] = it
	}
	require.Len(t, byName, 4)
	assert.Equal(t, Ingredient{Name: "Sugar", Effect: Bad, Note: "raises blood sugar"}, byName["Sugar"])
	assert.Equal(t, Good, byName["Whole-grain oats"].Effect)
	assert.Equal(t, Neutral, byName["Salt"].Effect)
	assert.Equal(t, Good, byName["Vitamin C"].Effect)
}

func TestParse_NothingRecovered(t *testing.T) {
	_, _, err := Parse("The photo is too blurry to read.", ParseOptions{})
	require.ErrorIs(t, err, ErrParseRecovery)
	assert.ErrorIs(t, err, recovery.ErrNothingRecovered)
	assert.Contains(t, err.Error(), "try another photo")
}

func TestParse_LineWithoutDelimiterSkipped(t *testing.T) {
	text := "Sugar\nSalt - moderate\nNothing else stood out"

	a, strategy, err := Parse(text, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, "lines", strategy)
	require.Len(t, a.Ingredients, 1)
	assert.Equal(t, "Salt", a.Ingredients[0].Name)
}

func TestParse_ExplicitEmptyList(t *testing.T) {
	_, _, err := Parse(`{"ingredients":[]}`, ParseOptions{})
	assert.ErrorIs(t, err, ErrParseRecovery)

	a, strategy, err := Parse(`{"ingredients":[]}`, ParseOptions{AllowEmpty: true})
	require.NoError(t, err)
	assert.Equal(t, "json", strategy)
	assert.Empty(t, a.Ingredients)

	_, _, err = Parse("nothing here", ParseOptions{AllowEmpty: true})
	assert.ErrorIs(t, err, ErrParseRecovery)
}

// =============================================================================
// SCORING
// =============================================================================

func TestScore_NutritionOnlyHighRisk(t *testing.T) {
	s, ok := Score(Analysis{Nutrition: &Nutrition{SugarG: f(30), SatFatG: f(8), SodiumMg: f(800), Calories: f(400)}})
	require.True(t, ok)
	assert.Equal(t, 0.0, s.Score)
	assert.Equal(t, RatingHighRisk, s.Rating)
}

func TestScore_IngredientOnly(t *testing.T) {
	good := []Ingredient{{Name: "a", Effect: Good}, {Name: "b", Effect: Good}}
	s, ok := Score(Analysis{Ingredients: good})
	require.True(t, ok)
	assert.Equal(t, 10.0, s.Score)
	assert.Equal(t, RatingSafer, s.Rating)

	bad := []Ingredient{{Name: "a", Effect: Bad}}
	s, _ = Score(Analysis{Ingredients: bad})
	assert.Equal(t, 0.0, s.Score)

	// mean of Good and Bad = -0.5 -> (2/4)*10 = 5
	mixed := []Ingredient{{Name: "a", Effect: Good}, {Name: "b", Effect: Bad}}
	s, _ = Score(Analysis{Ingredients: mixed})
	assert.Equal(t, 5.0, s.Score)
	assert.Equal(t, RatingCaution, s.Rating)
}

func TestScore_Combined(t *testing.T) {
	a := Analysis{
		Ingredients: []Ingredient{{Name: "a", Effect: Neutral}},
		Nutrition:   &Nutrition{FiberG: f(7), ProteinG: f(12), SugarG: f(1)},
	}
	// ingredient: (0+2.5)/4*10 = 6.25; nutrition: 5+1+1+0.5 = 7.5
	s, ok := Score(a)
	require.True(t, ok)
	assert.InDelta(t, 0.6*6.25+0.4*7.5, s.Score, 0.1)
	assert.Equal(t, RatingCaution, s.Rating)
}

func TestScore_NothingToScore(t *testing.T) {
	_, ok := Score(Analysis{})
	assert.False(t, ok)
}

func TestRating(t *testing.T) {
	assert.Equal(t, RatingHighRisk, Rating(3.49))
	assert.Equal(t, RatingCaution, Rating(3.5))
	assert.Equal(t, RatingCaution, Rating(7.5))
	assert.Equal(t, RatingSafer, Rating(7.51))
}

func TestNutritionScore_Bands(t *testing.T) {
	tests := []struct {
		name string
		n    Nutrition
		want float64
	}{
		{"low sugar bonus", Nutrition{SugarG: f(2)}, 5.5},
		{"mid sugar", Nutrition{SugarG: f(6)}, 4.5},
		{"high sugar", Nutrition{SugarG: f(10)}, 3.5},
		{"low sodium", Nutrition{SodiumMg: f(100)}, 5.5},
		{"mid sat fat", Nutrition{SatFatG: f(3)}, 4},
		{"light calories", Nutrition{Calories: f(90)}, 5.5},
		{"some fiber", Nutrition{FiberG: f(3)}, 5.5},
		{"max bonuses", Nutrition{SugarG: f(0), SatFatG: f(0), SodiumMg: f(0), Calories: f(50), FiberG: f(10), ProteinG: f(20)}, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.n
			got, ok := NutritionScore(&n)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

// =============================================================================
// SCANNER AND IMAGES
// =============================================================================

func TestScanner_Analyze(t *testing.T) {
	var got gemini.Request
	gen := gemini.GeneratorFunc(func(ctx context.Context, req gemini.Request) (string, error) {
		got = req
		return `{"ingredients":[{"name":"Sugar","effect":"bad"},{"name":"Cocoa","effect":"good"}],"nutrition":{"sugar_g":25}}`, nil
	})

	img := gemini.Image{MIMEType: "image/jpeg", Data: "QUJD"}
	res, err := NewScanner(gen, false).Analyze(context.Background(), img, Options{Language: "ar", Context: "chocolate bar"})
	require.NoError(t, err)

	require.Len(t, got.Images, 1)
	assert.Equal(t, img, got.Images[0])
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.0, *got.Temperature)
	assert.Equal(t, 0.1, *got.TopP)
	assert.Contains(t, got.System, "STRICT OCR MODE")
	assert.Contains(t, got.User, "Product context: chocolate bar.")
	assert.Contains(t, got.User, "Respond in Arabic")

	assert.Equal(t, "json", res.Strategy)
	assert.True(t, res.Scored)
	assert.Len(t, res.Analysis.Ingredients, 2)
	// ingredients 5.0, nutrition 2.5
	assert.InDelta(t, 4.0, res.Score.Score, 1e-9)
	assert.Equal(t, RatingCaution, res.Score.Rating)
}

func TestScanner_UnreadableAnswer(t *testing.T) {
	gen := gemini.GeneratorFunc(func(ctx context.Context, req gemini.Request) (string, error) {
		return "Sorry, I cannot read this image.", nil
	})
	_, err := NewScanner(gen, false).Analyze(context.Background(), gemini.Image{}, Options{})
	assert.ErrorIs(t, err, ErrParseRecovery)
}

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	path := filepath.Join(t.TempDir(), "label.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, img))
	require.NoError(t, file.Close())
	return path
}

func decodeUpload(t *testing.T, img gemini.Image) image.Config {
	t.Helper()
	assert.Equal(t, "image/jpeg", img.MIMEType)
	raw, err := base64.StdEncoding.DecodeString(img.Data)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	return cfg
}

func TestLoadImage_Downscales(t *testing.T) {
	img, err := LoadImage(writePNG(t, 2400, 1200), ImageOptions{})
	require.NoError(t, err)

	cfg := decodeUpload(t, img)
	assert.Equal(t, 1200, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}

func TestLoadImage_SmallImageKeepsSize(t *testing.T) {
	img, err := LoadImage(writePNG(t, 300, 200), ImageOptions{MaxDim: 1200, Quality: 80})
	require.NoError(t, err)

	cfg := decodeUpload(t, img)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestLoadImage_Errors(t *testing.T) {
	_, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"), ImageOptions{})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o600))
	_, err = LoadImage(bad, ImageOptions{})
	assert.Error(t, err)
}
