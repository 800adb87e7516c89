// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and usage text for habitrun.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdToday Command = iota
	CmdSetup
	CmdGoals
	CmdRoutine
	CmdDaily
	CmdPlan
	CmdLabel
	CmdCoach
	CmdData
	CmdStats
	CmdVersion
	CmdHelp
	CmdUnknown
)

// String returns the command name as typed by the user.
func (c Command) String() string {
	switch c {
	case CmdToday:
		return "today"
	case CmdSetup:
		return "setup"
	case CmdGoals:
		return "goals"
	case CmdRoutine:
		return "routine"
	case CmdDaily:
		return "daily"
	case CmdPlan:
		return "plan"
	case CmdLabel:
		return "label"
	case CmdCoach:
		return "coach"
	case CmdData:
		return "data"
	case CmdStats:
		return "stats"
	case CmdVersion:
		return "version"
	case CmdHelp:
		return "help"
	}
	return "unknown"
}

// NeedsApp reports whether the command opens the database and clients.
func (c Command) NeedsApp() bool {
	switch c {
	case CmdVersion, CmdHelp, CmdUnknown:
		return false
	}
	return true
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Profile    string
	Language   string
	Offline    bool
	Verbose    bool
	JSON       bool

	// Name is the command word as typed, kept for error messages.
	Name string

	// Raw holds the command's own arguments (after the command word).
	Raw []string
}

const usageText = `habitrun - habit and goal tracker with an AI coach

Usage:
  habitrun [global flags] <command> [arguments]

Commands:
  today                          Full-screen view of today's routine and tasks (default)
  setup                          Save the Gemini API key and pick a model
  goals monthly [list|add|notes|delete]
  goals weekly  [list|add|set|delete|tasks|link]
  routine [list|add|rename|enable|disable|delete|done|undo]
  daily   [show|add|toggle|remove]
  plan    [--date YYYY-MM-DD] [--notes TEXT] [--approve]
  label   <image> [--context TEXT] [--save] | label list
  coach   monthly|weekly|daily|motivation
  data    [overview|show|export|import|clear]
  stats   [--days N|--prune N|--prometheus]
  version                        Show version information
  help                           Show this help

Global flags:
  --config PATH                  Use a specific config file
  --profile NAME                 Work on another profile
  --lang en|ar                   Response language for AI output
  --offline                      Treat the assistant as offline (coach falls back to templates)
  -v, --verbose                  Debug logging to stderr
  --json                         Machine-readable output where supported

Examples:
  habitrun goals monthly add 2025-03 "Sleep before midnight"
  habitrun routine done 3
  habitrun plan --notes "gym at 18:00" --approve
  habitrun label ./cereal.jpg --save
  habitrun coach motivation --mood tired
  habitrun data export --format yaml > backup.yaml

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "habitrun version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
}

// VersionData is the JSON form of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion handles the "version" command.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print(w)
	}
	PrintVersion(w)
	return nil
}

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	// No command opens the full-screen view.
	if len(remaining) == 0 {
		parsed.Name = "today"
		return CmdToday, parsed
	}

	parsed.Name = strings.ToLower(remaining[0])
	parsed.Raw = remaining[1:]

	switch parsed.Name {
	case "today", "tui":
		return CmdToday, parsed
	case "setup", "init":
		return CmdSetup, parsed
	case "goals", "goal":
		return CmdGoals, parsed
	case "routine", "routines":
		return CmdRoutine, parsed
	case "daily", "day":
		return CmdDaily, parsed
	case "plan":
		return CmdPlan, parsed
	case "label", "scan":
		return CmdLabel, parsed
	case "coach":
		return CmdCoach, parsed
	case "data":
		return CmdData, parsed
	case "stats", "status":
		return CmdStats, parsed
	case "version", "--version":
		return CmdVersion, parsed
	case "help", "-h", "--help":
		return CmdHelp, parsed
	}
	return CmdUnknown, parsed
}

// parseGlobalFlags extracts global flags that appear before the command
// word and returns the rest untouched.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var parsed Args

	i := 0
	for i < len(argv) {
		arg := argv[i]
		name, value, hasValue := strings.Cut(arg, "=")

		switch name {
		case "--config", "--profile", "--lang":
			if !hasValue {
				if i+1 >= len(argv) {
					return argv[i:], parsed
				}
				i++
				value = argv[i]
			}
			switch name {
			case "--config":
				parsed.ConfigPath = value
			case "--profile":
				parsed.Profile = value
			case "--lang":
				parsed.Language = strings.ToLower(value)
			}
		case "--offline":
			parsed.Offline = true
		case "-v", "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		default:
			return argv[i:], parsed
		}
		i++
	}
	return nil, parsed
}
