// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jeranaias/habitrun/internal/config"
	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/label"
	"github.com/jeranaias/habitrun/internal/queue"
	"github.com/jeranaias/habitrun/internal/store"
	"github.com/jeranaias/habitrun/internal/tracker"
)

// =============================================================================
// COMMAND PARSING TESTS (cli.go)
// =============================================================================

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		argv    []string
		want    Command
		wantRaw []string
	}{
		{nil, CmdToday, nil},
		{[]string{"today"}, CmdToday, []string{}},
		{[]string{"goals", "monthly", "list"}, CmdGoals, []string{"monthly", "list"}},
		{[]string{"goal", "weekly"}, CmdGoals, []string{"weekly"}},
		{[]string{"routines"}, CmdRoutine, []string{}},
		{[]string{"DAILY", "add", "Walk"}, CmdDaily, []string{"add", "Walk"}},
		{[]string{"scan", "photo.jpg"}, CmdLabel, []string{"photo.jpg"}},
		{[]string{"plan", "--approve"}, CmdPlan, []string{"--approve"}},
		{[]string{"coach", "motivation"}, CmdCoach, []string{"motivation"}},
		{[]string{"data", "export"}, CmdData, []string{"export"}},
		{[]string{"status"}, CmdStats, []string{}},
		{[]string{"--version"}, CmdVersion, []string{}},
		{[]string{"-h"}, CmdHelp, []string{}},
		{[]string{"frobnicate"}, CmdUnknown, []string{}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			if cmd != tt.want {
				t.Errorf("Parse(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
			if tt.wantRaw != nil && strings.Join(args.Raw, " ") != strings.Join(tt.wantRaw, " ") {
				t.Errorf("Raw = %v, want %v", args.Raw, tt.wantRaw)
			}
		})
	}
}

func TestParse_GlobalFlags(t *testing.T) {
	cmd, args := Parse([]string{
		"--config", "/tmp/c.toml", "--profile=kid", "--lang", "AR",
		"--offline", "-v", "--json", "daily", "show", "--json",
	})

	if cmd != CmdDaily {
		t.Fatalf("cmd = %v, want daily", cmd)
	}
	if args.ConfigPath != "/tmp/c.toml" {
		t.Errorf("ConfigPath = %q", args.ConfigPath)
	}
	if args.Profile != "kid" {
		t.Errorf("Profile = %q", args.Profile)
	}
	if args.Language != "ar" {
		t.Errorf("Language = %q, want lower-cased", args.Language)
	}
	if !args.Offline || !args.Verbose || !args.JSON {
		t.Errorf("bool flags not set: %+v", args)
	}
	// Flags after the command word belong to the command.
	if strings.Join(args.Raw, " ") != "show --json" {
		t.Errorf("Raw = %v", args.Raw)
	}
}

func TestParse_GlobalFlagMissingValue(t *testing.T) {
	cmd, _ := Parse([]string{"--profile"})
	if cmd != CmdUnknown {
		t.Errorf("cmd = %v, want unknown", cmd)
	}
}

func TestCommand_NeedsApp(t *testing.T) {
	if CmdVersion.NeedsApp() || CmdHelp.NeedsApp() || CmdUnknown.NeedsApp() {
		t.Error("version, help and unknown must not open the app")
	}
	if !CmdToday.NeedsApp() || !CmdData.NeedsApp() {
		t.Error("today and data need the app")
	}
}

func TestHandleVersion(t *testing.T) {
	var sb strings.Builder
	if err := HandleVersion(&sb, Args{JSON: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), `"version": "`+Version+`"`) {
		t.Errorf("JSON version output missing version: %s", sb.String())
	}

	sb.Reset()
	if err := HandleVersion(&sb, Args{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(sb.String(), "habitrun version "+Version) {
		t.Errorf("unexpected output: %s", sb.String())
	}
}

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		bools    []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"Show"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(0) != "Show" {
					t.Errorf("Positional(0) = %q, want original case", p.Positional(0))
				}
			},
		},
		{
			name:    "flag with value",
			args:    []string{"add", "--date", "2025-03-10", "Walk"},
			wantSub: "add",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("date") != "2025-03-10" {
					t.Errorf("Flag(date) = %q", p.Flag("date"))
				}
				if JoinPositionalArgs(p, 1) != "Walk" {
					t.Errorf("label = %q", JoinPositionalArgs(p, 1))
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"show", "--month=2025-03"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("month") != "2025-03" {
					t.Errorf("Flag(month) = %q", p.Flag("month"))
				}
			},
		},
		{
			name:    "declared bool does not swallow positional",
			args:    []string{"link", "--routine", "4", "Stretch"},
			bools:   []string{"routine"},
			wantSub: "link",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("routine") {
					t.Error("BoolFlag(routine) should be true")
				}
				if p.Positional(1) != "4" {
					t.Errorf("Positional(1) = %q, want 4", p.Positional(1))
				}
			},
		},
		{
			name:    "undeclared flag takes value",
			args:    []string{"x", "--routine", "4"},
			wantSub: "x",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("routine") != "4" {
					t.Errorf("Flag(routine) = %q", p.Flag("routine"))
				}
			},
		},
		{
			name:    "bool with explicit value",
			args:    []string{"plan", "--approve=no"},
			bools:   []string{"approve"},
			wantSub: "plan",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("approve") {
					t.Error("--approve=no should be false")
				}
				if !p.HasFlag("approve") {
					t.Error("HasFlag(approve) should be true")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"add", "--", "--not-a-flag"},
			wantSub: "add",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Positional(1) != "--not-a-flag" {
					t.Errorf("Positional(1) = %q", p.Positional(1))
				}
			},
		},
		{
			name:    "empty",
			args:    nil,
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				if p.PositionalCount() != 0 || p.Positional(3) != "" {
					t.Error("empty parser should have no positionals")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args, tt.bools...)
			if p.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", p.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagInt(t *testing.T) {
	p := NewArgParser([]string{"--days", "14", "--limit", "x"})
	if got := p.FlagIntOrDefault("days", 7); got != 14 {
		t.Errorf("days = %d, want 14", got)
	}
	if got := p.FlagIntOrDefault("limit", 5); got != 5 {
		t.Errorf("limit = %d, want default 5", got)
	}
	if _, err := p.FlagInt("missing"); err == nil {
		t.Error("FlagInt(missing) should fail")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{" 12 ", 12, false},
		{"", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.in, "goal id")
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseID(%q) = %d, want %d", tt.in, got, tt.want)
		}
		var ve *ValidationError
		if err != nil && !errors.As(err, &ve) {
			t.Errorf("ParseID(%q) error should be a ValidationError", tt.in)
		}
	}
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"true", "YES", "y", "1", "on"} {
		if b, err := ParseBoolString(s); err != nil || !b {
			t.Errorf("ParseBoolString(%q) = %v, %v", s, b, err)
		}
	}
	for _, s := range []string{"false", "No", "n", "0", "off"} {
		if b, err := ParseBoolString(s); err != nil || b {
			t.Errorf("ParseBoolString(%q) = %v, %v", s, b, err)
		}
	}
	if _, err := ParseBoolString("maybe"); err == nil {
		t.Error("ParseBoolString(maybe) should fail")
	}
}

// =============================================================================
// ERROR TESTS (errors.go)
// =============================================================================

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("id", "x", "bad"), ExitUsageError},
		{"usage", usage("goals", "monthly"), ExitUsageError},
		{"empty label", tracker.ErrEmptyLabel, ExitUsageError},
		{"bad date", fmt.Errorf("wrap: %w", tracker.ErrInvalidDate), ExitUsageError},
		{"config", config.ValidateErrors{{Field: "queue.task_timeout_secs", Message: "must be positive"}}, ExitConfigError},
		{"auth", gemini.ErrAuthMissing, ExitAuthError},
		{"network", &gemini.NetworkError{Err: errors.New("dial")}, ExitNetworkError},
		{"not found", fmt.Errorf("goal 3: %w", store.ErrNotFound), ExitNotFound},
		{"task not found", tracker.ErrTaskNotFound, ExitNotFound},
		{"timeout", queue.ErrTaskTimeout, ExitTimeout},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth points at setup", gemini.ErrAuthMissing, "Run: habitrun setup"},
		{"label recovery", fmt.Errorf("x: %w", label.ErrParseRecovery), "Could not read the label"},
		{"timeout", queue.ErrTaskTimeout, "took too long"},
		{"canceled", context.Canceled, "Canceled."},
		{"network hint", &gemini.NetworkError{Err: errors.New("dial tcp")}, "--offline"},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
	if UserMessage(nil) != "" {
		t.Error("UserMessage(nil) should be empty")
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var sb strings.Builder
	DisplayError(&sb, "coach", gemini.ErrAuthMissing, true)
	out := sb.String()
	if !strings.Contains(out, `"success": false`) || !strings.Contains(out, `"kind": "auth_missing"`) {
		t.Errorf("unexpected JSON error output: %s", out)
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestFormatFor(t *testing.T) {
	tests := []struct{ flag, path, want string }{
		{"", "backup.yaml", "yaml"},
		{"", "backup.YML", "yaml"},
		{"", "backup.json", "json"},
		{"", "", "json"},
		{"yaml", "backup.json", "yaml"},
	}
	for _, tt := range tests {
		if got := formatFor(tt.flag, tt.path); got != tt.want {
			t.Errorf("formatFor(%q, %q) = %q, want %q", tt.flag, tt.path, got, tt.want)
		}
	}
}

func TestJoinNonEmpty(t *testing.T) {
	if got := joinNonEmpty(" gym ", "", "at 6"); got != "gym at 6" {
		t.Errorf("joinNonEmpty = %q", got)
	}
}
