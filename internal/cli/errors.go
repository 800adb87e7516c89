// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, user-facing messages and exit codes.
//
// Handlers always return errors and never print them; main decides how to
// display them and which exit code to use.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/habitrun/internal/config"
	"github.com/jeranaias/habitrun/internal/dayplan"
	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/label"
	"github.com/jeranaias/habitrun/internal/queue"
	"github.com/jeranaias/habitrun/internal/store"
	"github.com/jeranaias/habitrun/internal/tracker"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 7
	ExitTimeout      = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError represents invalid user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// UsageError reports an unknown or missing subcommand.
type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage: habitrun %s %s", e.Command, e.Usage)
}

func usage(command, text string) error {
	return &UsageError{Command: command, Usage: text}
}

// =============================================================================
// USER-FACING MESSAGES
// =============================================================================

// UserMessage turns an error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		httpErr  *gemini.HTTPError
		blocked  *gemini.SafetyBlockedError
		empty    *gemini.EmptyResultError
		netErr   *gemini.NetworkError
		validErr config.ValidateErrors
	)
	switch {
	case errors.Is(err, gemini.ErrAuthMissing):
		return gemini.ErrAuthMissing.Error() + " Run: habitrun setup"
	case errors.As(err, &httpErr):
		return httpErr.Error()
	case errors.As(err, &blocked):
		return blocked.Error()
	case errors.As(err, &empty):
		return empty.Error()
	case errors.Is(err, label.ErrParseRecovery):
		return "Could not read the label, try another photo."
	case errors.Is(err, dayplan.ErrParseRecovery):
		return "Could not read a day plan from the answer, try again."
	case errors.Is(err, queue.ErrTaskTimeout):
		return "The AI request took too long and was abandoned. Try again."
	case errors.As(err, &netErr):
		return netErr.Error() + " (check your connection or use --offline)"
	case errors.Is(err, context.Canceled):
		return "Canceled."
	case errors.As(err, &validErr):
		return "Invalid configuration: " + validErr.Error()
	}
	return err.Error()
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		validation *ValidationError
		usageErr   *UsageError
		validErr   config.ValidateErrors
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &usageErr),
		errors.Is(err, tracker.ErrEmptyLabel), errors.Is(err, tracker.ErrInvalidDate),
		errors.Is(err, tracker.ErrInvalidMonth), errors.Is(err, tracker.ErrNotEditable):
		return ExitUsageError
	case errors.As(err, &validErr):
		return ExitConfigError
	case errors.Is(err, gemini.ErrAuthMissing):
		return ExitAuthError
	case gemini.KindOf(err) == gemini.KindNetwork:
		return ExitNetworkError
	case errors.Is(err, store.ErrNotFound), errors.Is(err, tracker.ErrTaskNotFound),
		errors.Is(err, store.ErrUnknownCollection):
		return ExitNotFound
	case errors.Is(err, queue.ErrTaskTimeout), errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	}
	return ExitGeneralError
}

// DisplayError writes an error in the human or JSON format.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponseStr(command, UserMessage(err))
		resp.Kind = string(gemini.KindOf(err))
		resp.Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), UserMessage(err))
}
