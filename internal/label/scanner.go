// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package label

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/habitrun/internal/gemini"
)

const (
	ocrSystemPrompt = `STRICT OCR MODE, ZERO HALLUCINATION RULES:
- Read ONLY text visible in the image.
- DO NOT guess, infer, or add missing ingredients.
- Extract EXACT wording exactly as printed.
- If unreadable, skip it or label it as "Unknown".
- Do NOT use world knowledge or typical ingredient lists.
- Output ONLY valid JSON.`

	// MaxOutputTokens is the token budget for a label reading.
	MaxOutputTokens = 800
)

// Options describe the scan.
type Options struct {
	Language string
	Context  string
}

// Result is a parsed and scored scan.
type Result struct {
	Analysis Analysis
	Score    HealthScore
	Scored   bool
	Strategy string
}

// Scanner sends label photos to the model.
type Scanner struct {
	gen   gemini.Generator
	parse ParseOptions
}

// NewScanner creates a scanner on top of gen, normally a queued generator.
func NewScanner(gen gemini.Generator, allowEmpty bool) *Scanner {
	return &Scanner{gen: gen, parse: ParseOptions{AllowEmpty: allowEmpty}}
}

// Analyze reads one label image.
func (s *Scanner) Analyze(ctx context.Context, img gemini.Image, opts Options) (Result, error) {
	text, err := s.gen.Generate(ctx, BuildRequest(img, opts))
	if err != nil {
		return Result{}, err
	}

	parseOpts := s.parse
	parseOpts.Language = opts.Language
	a, strategy, err := Parse(text, parseOpts)
	if err != nil {
		return Result{}, err
	}

	score, scored := Score(a)
	return Result{Analysis: a, Score: score, Scored: scored, Strategy: strategy}, nil
}

// BuildRequest composes the strict OCR request for img.
func BuildRequest(img gemini.Image, opts Options) gemini.Request {
	return gemini.Request{
		System:          ocrSystemPrompt,
		User:            buildPrompt(opts),
		Images:          []gemini.Image{img},
		Temperature:     gemini.Float(0),
		TopP:            gemini.Float(0.1),
		MaxOutputTokens: MaxOutputTokens,
		Purpose:         "label",
	}
}

func buildPrompt(opts Options) string {
	langNote := "Respond in English."
	if opts.Language == "ar" {
		langNote = "Respond in Arabic, but effect words and JSON keys must stay in English."
	}
	contextLine := "Product context: general."
	if c := strings.TrimSpace(opts.Context); c != "" {
		contextLine = fmt.Sprintf("Product context: %s.", c)
	}

	return strings.Join([]string{
		"You will receive a product label image.",
		"",
		"TASK:",
		"1. Read ONLY the clearly visible ingredient text from the image.",
		"2. DO NOT add or guess any missing ingredients.",
		"3. Ingredient names must match the image EXACTLY.",
		`4. If unsure or text is unclear, use {"name":"Unknown","effect":"Unknown","note":""}`,
		"5. For each ingredient found, classify into: Good, Bad, Neutral or Unknown.",
		"6. Keep notes short (<= 8 words), factual, no guesses.",
		"7. If a nutrition facts table is visible, copy per-serving numbers; use null for anything not printed.",
		"8. Output ONLY JSON in exactly this format:",
		"",
		`{"summary":"one sentence","ingredients":[{"name":"...","effect":"Good|Bad|Neutral|Unknown","note":"..."}],` +
			`"nutrition":{"calories":null,"sugar_g":null,"sat_fat_g":null,"sodium_mg":null,"protein_g":null,"fiber_g":null}}`,
		"",
		contextLine,
		langNote,
	}, "\n")
}
