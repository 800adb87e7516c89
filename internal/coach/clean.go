// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package coach

import (
	"regexp"
	"strings"
)

var (
	emphasis   = regexp.MustCompile(`\*\*|__`)
	heading    = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]*`)
	bullet     = regexp.MustCompile(`(?m)^([ \t]*)[*\-+][ \t]+`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// Clean turns Markdown-ish model text into plain text: bold markers and
// heading hashes are dropped, bullets become "•" and runs of blank lines
// collapse to one.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = emphasis.ReplaceAllString(text, "")
	text = heading.ReplaceAllString(text, "")
	text = bullet.ReplaceAllString(text, "$1• ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}
