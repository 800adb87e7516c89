// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package recovery turns loosely structured model output into JSON values.
//
// Parsers are written as an ordered list of strategies. Run tries each in
// turn and the first one that produces a result wins, so strict parses are
// preferred and line heuristics are only a last resort.
package recovery

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNothingRecovered means no strategy produced a result.
var ErrNothingRecovered = errors.New("no structured content could be recovered")

// Error reports which strategies were tried.
type Error struct {
	Tried []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%v (tried %s)", ErrNothingRecovered, strings.Join(e.Tried, ", "))
}

// Unwrap returns ErrNothingRecovered.
func (e *Error) Unwrap() error {
	return ErrNothingRecovered
}

// Strategy is one way of reading text. Parse reports false when the text is
// not in its shape.
type Strategy[T any] struct {
	Name  string
	Parse func(text string) (T, bool)
}

// Run returns the first successful strategy result and its name.
func Run[T any](text string, strategies ...Strategy[T]) (T, string, error) {
	tried := make([]string, 0, len(strategies))
	for _, s := range strategies {
		if v, ok := s.Parse(text); ok {
			return v, s.Name, nil
		}
		tried = append(tried, s.Name)
	}
	var zero T
	return zero, "", &Error{Tried: tried}
}

// =============================================================================
// TEXT SCANNING
// =============================================================================

var fencePattern = regexp.MustCompile("(?i)```(?:json)?")

// StripCodeFences removes Markdown code fences and trims the result.
func StripCodeFences(text string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// ExtractObject returns the span from the first '{' to the last '}'.
func ExtractObject(text string) (string, bool) {
	return span(text, 0, '{', '}')
}

// ExtractArray returns the span from the first '[' to the last ']'.
func ExtractArray(text string) (string, bool) {
	return span(text, 0, '[', ']')
}

// ExtractNamedArray returns the span from the first '[' after field to the
// last ']'.
func ExtractNamedArray(text, field string) (string, bool) {
	marker := strings.Index(text, field)
	if marker < 0 {
		return "", false
	}
	return span(text, marker+len(field), '[', ']')
}

func span(text string, from int, open, close byte) (string, bool) {
	start := strings.IndexByte(text[from:], open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end < 0 {
		return "", false
	}
	start += from
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseJSON parses text when it is valid JSON as a whole.
func ParseJSON(text string) (gjson.Result, bool) {
	text = strings.TrimSpace(text)
	if text == "" || !gjson.Valid(text) {
		return gjson.Result{}, false
	}
	return gjson.Parse(text), true
}

var (
	lineSplitter = regexp.MustCompile(`\r?\n`)
	bulletPrefix = regexp.MustCompile(`^(?:[-*•·–—]+\s*|\d{1,3}[.)]\s+|\(\d{1,3}\)\s*)`)
)

// Lines splits text on newlines and any extra separators, trims each piece
// and drops empty ones.
func Lines(text string, extraSeps ...string) []string {
	pieces := lineSplitter.Split(text, -1)
	for _, sep := range extraSeps {
		var next []string
		for _, p := range pieces {
			next = append(next, strings.Split(p, sep)...)
		}
		pieces = next
	}

	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StripBullet removes one leading list marker such as "-", "•", "1." or "(2)".
func StripBullet(line string) string {
	return strings.TrimSpace(bulletPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
}

// =============================================================================
// FIELD ACCESS
// =============================================================================

// FirstString returns the first non-empty trimmed string among fields.
func FirstString(item gjson.Result, fields ...string) string {
	for _, f := range fields {
		v := item.Get(f)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

var (
	numberPrefix = regexp.MustCompile(`^[-+]?(?:\d+(?:[.,]\d+)?|[.,]\d+)`)
	thousands    = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+\b`)
)

// Number coerces a JSON number or a numeric string such as "12 g" or
// "<1" to a float. Anything else is not a number.
func Number(v gjson.Result) (float64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Float(), true
	case gjson.String:
		s := strings.TrimSpace(v.String())
		s = strings.TrimLeft(s, "<>~≈ ")
		if m := thousands.FindString(s); m != "" {
			s = strings.ReplaceAll(m, ",", "") + s[len(m):]
		}
		m := numberPrefix.FindString(s)
		if m == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
