// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and execution for habitrun.
//
// Every command except version and help runs against an App, which wires
// the configuration, the document store, the sealed settings, the offline
// monitor, the generation queue and the AI features together.
//
// # Key Types
//
//   - Command: Enumeration of all available CLI commands
//   - Args: Global flags plus the command's own arguments
//   - ArgParser: Subcommand, flag and positional parsing for one command
//   - App: Opened services; Run dispatches a Command
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	cfg, err := cli.LoadConfig(args)
//	app, err := cli.Open(cfg, args, cli.Options{})
//	defer app.Close()
//	err = app.Run(ctx, cmd)
//
// # Commands Overview
//
//   - setup: Gemini API key and model
//   - goals: Monthly and weekly goals, reflections and linked tasks
//   - routine: Recurring tasks and their per-day completion
//   - daily: The day's checklist
//   - plan: AI day planner
//   - label: Food label scanning and health score
//   - coach: Monthly plan, weekly reflection, daily suggestions, motivation
//   - data: Overview, export, import and clearing of stored records
//   - stats: Assistant status and generation usage
//
// Handlers return errors and never print them; UserMessage and ExitCode
// turn them into output and a process status.
package cli
