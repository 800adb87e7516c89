// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the colors and lipgloss styles of habitrun's
// full-screen views.
//
// Colors are lipgloss.AdaptiveColor values so the same palette works on
// light and dark terminals. Status messages always carry an ASCII
// indicator ([OK], [X], [!], [i]) next to the color.
package styles
