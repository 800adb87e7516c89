// habitrun - goals, routines and daily checklists with an AI coach.
//
// Build metadata is set with:
//
//	go build -ldflags "-X github.com/jeranaias/habitrun/internal/cli.Version=1.0.0"
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/habitrun/internal/cli"
	"github.com/jeranaias/habitrun/internal/config"
	"github.com/jeranaias/habitrun/internal/ui/today"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cmd, args := cli.Parse(argv)
	switch cmd {
	case cli.CmdVersion:
		return exit(args, cli.HandleVersion(os.Stdout, args))
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdUnknown:
		cli.DisplayError(os.Stderr, args.Name,
			fmt.Errorf("unknown command %q (see habitrun help)", args.Name), args.JSON)
		return cli.ExitUsageError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := cli.LoadConfig(args)
	if err != nil {
		return exit(args, err)
	}

	fullScreen := cmd == cli.CmdToday && cli.IsStdoutTTY() && !args.JSON
	app, err := cli.Open(cfg, args, cli.Options{LogToFile: fullScreen})
	if err != nil {
		return exit(args, err)
	}
	defer app.Close()

	switch {
	case fullScreen:
		err = runToday(ctx, app, args)
	case cmd == cli.CmdToday:
		// Without a terminal the checklist is printed instead.
		err = app.Run(ctx, cli.CmdDaily)
	default:
		err = app.Run(ctx, cmd)
	}
	return exit(args, err)
}

func runToday(ctx context.Context, app *cli.App, args cli.Args) error {
	if _, err := app.Tracker.EnsureRoutineDefaults(ctx); err != nil {
		return err
	}

	path := args.ConfigPath
	if path == "" {
		p, err := config.Path()
		if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
			app.Logger.WithError(err).Warn("config path unavailable, live reload off")
		} else {
			path = p
		}
	}

	return today.Run(ctx, today.Deps{
		Tracker:  app.Tracker,
		Coach:    app.Coach,
		Settings: app.Settings,
		Monitor:  app.Monitor,
		Language: app.Language(),
		Logger:   app.Logger,
	}, path)
}

// exit prints err and maps it to a process status.
func exit(args cli.Args, err error) int {
	if err == nil {
		return cli.ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		return cli.ExitCode(err)
	}
	cli.DisplayError(os.Stderr, args.Name, err, args.JSON)
	return cli.ExitCode(err)
}
