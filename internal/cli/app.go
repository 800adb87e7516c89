// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// app.go - Wiring of configuration, storage and the AI pipeline.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/habitrun/internal/coach"
	"github.com/jeranaias/habitrun/internal/config"
	"github.com/jeranaias/habitrun/internal/dayplan"
	"github.com/jeranaias/habitrun/internal/gemini"
	"github.com/jeranaias/habitrun/internal/label"
	"github.com/jeranaias/habitrun/internal/logging"
	"github.com/jeranaias/habitrun/internal/offline"
	"github.com/jeranaias/habitrun/internal/queue"
	"github.com/jeranaias/habitrun/internal/secret"
	"github.com/jeranaias/habitrun/internal/settings"
	"github.com/jeranaias/habitrun/internal/store"
	"github.com/jeranaias/habitrun/internal/telemetry"
	"github.com/jeranaias/habitrun/internal/tracker"
)

// PassphraseEnv names the environment variable that, when set, derives the
// sealing key from a passphrase instead of the key file.
const PassphraseEnv = "HABITRUN_PASSPHRASE"

// LoadConfig loads the configuration named by --config (or the default
// location) and applies the global flags on top.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	ApplyArgs(cfg, args)
	return cfg, nil
}

// ApplyArgs applies global flags to cfg.
func ApplyArgs(cfg *config.Config, args Args) {
	if args.Profile != "" {
		cfg.Profile = args.Profile
	}
	if args.Language != "" {
		cfg.Language = args.Language
	}
	if args.Offline {
		cfg.Offline.Forced = true
	}
	if args.Verbose {
		cfg.Logging.Level = "debug"
	}
}

// Options tunes Open for the full-screen view and for tests.
type Options struct {
	Out io.Writer
	In  io.Reader

	// LogToFile sends logs to <data dir>/habitrun.log unless a log file is
	// configured already.
	LogToFile bool

	// HTTPClient replaces the generation client's transport.
	HTTPClient *http.Client

	// Dial replaces the connectivity probe's dialer.
	Dial offline.DialFunc
}

// App holds every service a command may use.
type App struct {
	Config *config.Config
	Args   Args
	Logger *logrus.Logger

	Store    *store.Store
	Settings *settings.Settings
	Monitor  *offline.Monitor
	Metrics  *telemetry.Metrics
	Usage    *telemetry.UsageLog
	Queue    *queue.Queue
	Client   *gemini.Client

	// Generator is the queued client every AI feature goes through.
	Generator gemini.Generator

	Coach   *coach.Coach
	Planner *dayplan.Planner
	Scanner *label.Scanner
	Tracker *tracker.Tracker

	out      io.Writer
	in       io.Reader
	renderer *Renderer
	log      *logrus.Entry
	logClose io.Closer
}

// Open builds the application from cfg.
func Open(cfg *config.Config, args Args, opts Options) (*App, error) {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if err := offline.ValidateURL(cfg.Gemini.BaseURL); err != nil {
		return nil, fmt.Errorf("gemini.base_url: %w", err)
	}

	logOpts := logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}
	if opts.LogToFile && logOpts.File == "" {
		logOpts.File = filepath.Join(cfg.DataDir, "habitrun.log")
	}
	logger, logClose, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Args:     args,
		Logger:   logger,
		out:      opts.Out,
		in:       opts.In,
		log:      logging.For(logger, "app"),
		logClose: logClose,
	}

	a.Store, err = store.Open(cfg.DatabasePath())
	if err != nil {
		a.Close()
		return nil, err
	}

	box, err := secret.Open(secret.Options{
		KeyPath:    cfg.SecretKeyPath(),
		Passphrase: os.Getenv(PassphraseEnv),
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open secret key: %w", err)
	}

	a.Settings = settings.New(a.Store, box, settings.Options{
		DefaultAPIKey: cfg.Gemini.APIKey,
		DefaultModel:  cfg.Gemini.Model,
		Logger:        logger,
	})

	a.Monitor = offline.NewMonitor(offline.Options{
		Forced:  cfg.Offline.Forced,
		Addr:    cfg.Offline.ProbeAddr,
		Timeout: time.Duration(cfg.Offline.ProbeTimeoutMs) * time.Millisecond,
		TTL:     time.Duration(cfg.Offline.ProbeTTLSecs) * time.Second,
		Dial:    opts.Dial,
	})

	// Metrics reads the queue depth lazily, so the queue can take the
	// metrics as its observer.
	var q *queue.Queue
	a.Metrics = telemetry.NewMetrics(func() int {
		if q == nil {
			return 0
		}
		return q.Pending()
	})
	a.Usage, err = telemetry.NewUsageLog(filepath.Join(cfg.DataDir, "usage"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Metrics.AttachUsage(a.Usage)

	q = queue.New(
		queue.WithLogger(logger),
		queue.WithObserver(a.Metrics),
		queue.WithTimeout(cfg.TaskTimeout()),
		queue.WithMinInterval(cfg.MinInterval()),
		queue.WithHistory(cfg.Queue.HistorySize),
	)
	a.Queue = q

	a.Client = gemini.NewClient(a.Settings).
		WithBaseURL(cfg.Gemini.BaseURL).
		WithLogger(logger).
		WithObserver(a.Metrics)
	if opts.HTTPClient != nil {
		a.Client = a.Client.WithHTTPClient(opts.HTTPClient)
	}
	a.Generator = gemini.Queued(a.Client, q)

	a.Coach = coach.New(a.Generator, a.Monitor, logger)
	a.Planner = dayplan.NewPlanner(a.Generator)
	a.Scanner = label.NewScanner(a.Generator, cfg.Label.AllowEmpty)
	a.Tracker = tracker.New(a.Store, cfg.Profile, logger)

	a.renderer = NewRenderer(cfg.UI.MarkdownStyle, GetTerminalWidth(), cfg.UI.Plain || !IsStdoutTTY())

	a.log.WithFields(logrus.Fields{
		"profile":  cfg.Profile,
		"database": cfg.DatabasePath(),
		"offline":  cfg.Offline.Forced,
	}).Debug("Application opened")
	return a, nil
}

// Close stops the queue, flushes usage counters and closes the database.
// It is safe to call on a partially opened App.
func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.Usage != nil {
		if err := a.Usage.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.logClose != nil {
		if err := a.logClose.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Out returns the writer commands print to.
func (a *App) Out() io.Writer {
	return a.out
}

// Language returns the configured response language.
func (a *App) Language() string {
	return a.Config.Language
}

// Run executes a command.
func (a *App) Run(ctx context.Context, cmd Command) error {
	switch cmd {
	case CmdSetup:
		return a.HandleSetup(ctx)
	case CmdGoals:
		return a.HandleGoals(ctx)
	case CmdRoutine:
		return a.HandleRoutine(ctx)
	case CmdDaily:
		return a.HandleDaily(ctx)
	case CmdPlan:
		return a.HandlePlan(ctx)
	case CmdLabel:
		return a.HandleLabel(ctx)
	case CmdCoach:
		return a.HandleCoach(ctx)
	case CmdData:
		return a.HandleData(ctx)
	case CmdStats:
		return a.HandleStats(ctx)
	case CmdVersion:
		return HandleVersion(a.out, a.Args)
	case CmdHelp:
		PrintUsage(a.out)
		return nil
	}
	return usage(a.Args.Name, "is not a command (see habitrun help)")
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// jsonMode reports whether --json was given globally or to the command.
func (a *App) jsonMode(p *ArgParser) bool {
	return a.Args.JSON || (p != nil && p.BoolFlag("json"))
}

// emit prints data as JSON when requested, or runs human otherwise.
func (a *App) emit(p *ArgParser, command string, data any, human func()) error {
	if a.jsonMode(p) {
		return NewJSONResponse(command, data).Print(a.out)
	}
	human()
	return nil
}

// success prints a confirmation line.
func (a *App) success(format string, args ...any) {
	a.printf("%s %s\n", SuccessStyle.Render("[OK]"), fmt.Sprintf(format, args...))
}
