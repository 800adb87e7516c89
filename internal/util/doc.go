// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across habitrun.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync and rename
//
// Display Helpers:
//   - TruncateWidth: display-width aware truncation with an ellipsis
//   - PadWidth: right-pad a string to a display width
//   - FirstNonEmpty: first trimmed non-empty string of a list
//
// # Usage
//
//	// Write an export without leaving a partial file behind
//	err := util.AtomicWriteFile(path, data, 0600)
//
//	// Fit an Arabic or CJK label into a table column
//	cell := util.PadWidth(util.TruncateWidth(label, 32), 32)
package util
