// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for habitrun commands.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set;
// FORCE_COLOR overrides detection.

package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/habitrun/internal/label"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// SectionStyle is used for section headers within commands.
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			MarginTop(1)

	// LabelStyle is used for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(20)

	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for ids, dates and hints.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal separator line. Default width is 60.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("─", w))
}

// RenderLabel renders a field label padded to the label column.
func RenderLabel(text string) string {
	return LabelStyle.Render(text)
}

// RenderCheck renders a done/not-done box.
func RenderCheck(done bool) string {
	if done {
		return SuccessStyle.Render("[x]")
	}
	return DimStyle.Render("[ ]")
}

// RenderRating colors a health rating.
func RenderRating(score label.HealthScore) string {
	text := fmt.Sprintf("%.1f/10 %s", score.Score, score.Rating)
	switch score.Rating {
	case label.RatingSafer:
		return SuccessStyle.Render(text)
	case label.RatingHighRisk:
		return ErrorStyle.Render(text)
	default:
		return WarningStyle.Render(text)
	}
}

// RenderEffect renders an ingredient effect tag.
func RenderEffect(e label.Effect) string {
	tag := "[" + strings.ToUpper(string(e)) + "]"
	switch e {
	case label.Good:
		return SuccessStyle.Render(tag)
	case label.Bad:
		return ErrorStyle.Render(tag)
	case label.Neutral:
		return ValueStyle.Render(tag)
	default:
		return DimStyle.Render(tag)
	}
}

// RenderConditional renders text with style if colors are enabled,
// otherwise returns the text unmodified.
func RenderConditional(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		return text
	}
	return style.Render(text)
}
