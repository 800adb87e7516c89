// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// render.go - Markdown and syntax-highlighted output.

package cli

import (
	"bytes"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/habitrun/internal/coach"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// Renderer prints model text. On a terminal it renders Markdown with
// glamour; otherwise, or when plain output is configured, it prints the
// cleaned text.
type Renderer struct {
	md    *glamour.TermRenderer
	plain bool
}

// NewRenderer builds a renderer. style is a glamour style name or "auto".
// Rendering falls back to plain text when the renderer cannot be built.
func NewRenderer(style string, width int, plain bool) *Renderer {
	if plain {
		return &Renderer{plain: true}
	}
	if width <= 0 {
		width = DefaultTerminalWidth
	}

	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width - 4)}
	if style == "" || strings.EqualFold(style, "auto") {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return &Renderer{plain: true}
	}
	return &Renderer{md: md}
}

// Render returns text for display.
func (r *Renderer) Render(text string) string {
	if r == nil || r.plain || r.md == nil {
		return coach.Clean(text) + "\n"
	}
	out, err := r.md.Render(text)
	if err != nil {
		return coach.Clean(text) + "\n"
	}
	return out
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// Highlight writes source highlighted for the terminal. language is a chroma
// lexer name ("json", "yaml"). On failure it writes source unchanged.
func Highlight(w io.Writer, source, language string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		_, werr := io.WriteString(w, source)
		return werr
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		_, werr := io.WriteString(w, source)
		return werr
	}
	_, err = w.Write(buf.Bytes())
	return err
}
