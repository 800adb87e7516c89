// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styles of the full-screen views.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// ==========================================================================
	// CHECKLIST
	// ==========================================================================

	Section      lipgloss.Style
	Item         lipgloss.Style
	ItemDone     lipgloss.Style
	ItemSelected lipgloss.Style
	Source       lipgloss.Style
	Empty        lipgloss.Style

	// ==========================================================================
	// PANELS
	// ==========================================================================

	Panel      lipgloss.Style
	PanelTitle lipgloss.Style
	Input      lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar     lipgloss.Style
	StatusOffline lipgloss.Style
	Progress      lipgloss.Style
	Help          lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 2)
	t.HeaderTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.Section = lipgloss.NewStyle().Bold(true).Foreground(Cyan).MarginTop(1)
	t.Item = lipgloss.NewStyle().Foreground(TextPrimary)
	t.ItemDone = lipgloss.NewStyle().Foreground(TextMuted).Strikethrough(true)
	t.ItemSelected = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary).Background(SelectionBg)
	t.Source = lipgloss.NewStyle().Foreground(TextMuted)
	t.Empty = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.PanelTitle = lipgloss.NewStyle().Bold(true).Foreground(Emerald)
	t.Input = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Cyan).
		Padding(0, 1)

	t.StatusBar = lipgloss.NewStyle().Foreground(TextSecondary).Background(SurfaceDim).Padding(0, 1)
	t.StatusOffline = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.Progress = lipgloss.NewStyle().Foreground(Emerald)
	t.Help = lipgloss.NewStyle().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // >= 100 columns
)

// ContentWidth is the usable width inside the app padding.
func (t *Theme) ContentWidth() int {
	w := t.Width - 2
	if w < 20 {
		return 20
	}
	if t.GetLayoutMode() == LayoutWide && w > 100 {
		return 100
	}
	return w
}
