// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Interactive prompts, confirmations and the wait spinner.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"
)

// =============================================================================
// PROMPTER
// =============================================================================

// prompter reads answers with line editing on a terminal and from a plain
// reader otherwise (pipes, tests).
type prompter struct {
	line   *liner.State
	reader *bufio.Reader
	out    io.Writer
}

func (a *App) newPrompter() *prompter {
	if f, ok := a.in.(*os.File); ok && f == os.Stdin && IsTTY() {
		line := liner.NewLiner()
		line.SetCtrlCAborts(true)
		return &prompter{line: line, out: a.out}
	}
	return &prompter{reader: bufio.NewReader(a.in), out: a.out}
}

// Close restores the terminal.
func (p *prompter) Close() {
	if p.line != nil {
		p.line.Close()
	}
}

// Prompt reads one trimmed line. Ctrl+C is reported as context.Canceled.
func (p *prompter) Prompt(text string) (string, error) {
	if p.line != nil {
		s, err := p.line.Prompt(text)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", context.Canceled
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}

	fmt.Fprint(p.out, text)
	s, err := p.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	// piped input is not echoed
	fmt.Fprintln(p.out)
	return strings.TrimSpace(s), nil
}

// PromptDefault reads a line, returning def for an empty answer.
func (p *prompter) PromptDefault(text, def string) (string, error) {
	if def != "" {
		text = fmt.Sprintf("%s [%s]: ", text, def)
	} else {
		text += ": "
	}
	s, err := p.Prompt(text)
	if err != nil {
		return "", err
	}
	if s == "" {
		return def, nil
	}
	return s, nil
}

// Secret reads a line without echo on a terminal.
func (p *prompter) Secret(text string) (string, error) {
	if p.line != nil {
		s, err := p.line.PasswordPrompt(text)
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", context.Canceled
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	return p.Prompt(text)
}

// YesNo asks a [y/N] question.
func (p *prompter) YesNo(question string) (bool, error) {
	s, err := p.Prompt(question + " [y/N]: ")
	if err != nil {
		return false, err
	}
	s = strings.ToLower(s)
	return s == "y" || s == "yes", nil
}

// confirm asks before a destructive or bulk action. --yes skips the
// question; JSON mode requires it.
func (a *App) confirm(p *ArgParser, question string) (bool, error) {
	if p.BoolFlag("yes") || p.BoolFlag("y") {
		return true, nil
	}
	if a.jsonMode(p) {
		return false, NewValidationError("confirmation", "", "use --yes in JSON mode")
	}
	pr := a.newPrompter()
	defer pr.Close()
	return pr.YesNo(question)
}

// =============================================================================
// SPINNER
// =============================================================================

// withSpinner runs fn while animating a spinner on stderr. Nothing is drawn
// when stdout is not a terminal or JSON output is on.
func (a *App) withSpinner(p *ArgParser, msg string, fn func() error) error {
	if a.jsonMode(p) || !IsStdoutTTY() {
		return fn()
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	spinChars := []rune{'|', '/', '-', '\\'}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	i := 0
	fmt.Fprintf(os.Stderr, "  %s... ", msg)
	for {
		select {
		case err := <-done:
			fmt.Fprintf(os.Stderr, "\r%s\r", strings.Repeat(" ", len(msg)+8))
			return err
		case <-ticker.C:
			fmt.Fprintf(os.Stderr, "\r  %s... %c", msg, spinChars[i%len(spinChars)])
			i++
		}
	}
}
