package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mikage/tweetrunner/internal/config"
	"github.com/mikage/tweetrunner/internal/database"
	"github.com/mikage/tweetrunner/internal/runner"
	"github.com/mikage/tweetrunner/internal/snapshot"
	"github.com/mikage/tweetrunner/internal/twitter"
	"github.com/mikage/tweetrunner/pkg/models"
)

var CLI struct {
	Config string `help:"Path to the configuration snapshot (overrides CONFIG_PATH)." type:"path"`
	DryRun bool   `help:"Simulate all remote calls and skip file writes."`

	Post  PostCmd  `cmd:"" help:"Run the scheduled-post flow."`
	Reply ReplyCmd `cmd:"" help:"Run the reply-monitor flow."`
	Run   RunCmd   `cmd:"" default:"1" help:"Run both flows."`
}

// appContext carries the per-run collaborators into the kong commands.
type appContext struct {
	ctx      context.Context
	logger   *slog.Logger
	store    *snapshot.Store
	snap     *models.Snapshot
	runner   *runner.Runner
	exitCode int
}

type PostCmd struct{}

func (PostCmd) Run(app *appContext) error {
	app.finish(app.runner.RunScheduledPosts(app.ctx))
	return nil
}

type ReplyCmd struct{}

func (ReplyCmd) Run(app *appContext) error {
	app.finish(app.runner.RunReplyMonitor(app.ctx))
	return nil
}

type RunCmd struct{}

func (RunCmd) Run(app *appContext) error {
	posts := app.runner.RunScheduledPosts(app.ctx)
	replies := app.runner.RunReplyMonitor(app.ctx)
	app.finish(runner.Combine(posts, replies))
	return nil
}

// finish persists the snapshot if any cursor or watermark moved, logs the
// run summary and resolves the process exit code.
func (app *appContext) finish(summary runner.Summary) {
	if summary.Updated {
		if err := app.store.Save(app.snap); err != nil {
			// keep the in-memory result; the next run re-reads the old
			// cursors, which may repeat work but never loses posts
			app.logger.Warn("failed to save updated snapshot", "error", err)
		}
	}

	app.logger.Info("run completed",
		"published", summary.Published,
		"rejected", summary.Rejected,
		"errors", summary.Errors,
		"skipped", summary.Skipped,
		"deferred", summary.Deferred,
		"snapshot_updated", summary.Updated)
	app.exitCode = summary.ExitCode()
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	kctx := kong.Parse(&CLI,
		kong.Name("tweetrunner"),
		kong.Description("Stateless Twitter auto-post and reply-monitor runner"),
		kong.UsageOnError(),
	)
	if CLI.Config != "" {
		cfg.ConfigPath = CLI.Config
	}
	if CLI.DryRun {
		cfg.DryRun = true
	}

	// Setup logger
	logger := setupLogger(cfg)
	logger.Info("starting tweetrunner", "dry_run", cfg.DryRun, "timezone", cfg.Timezone)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("failed to resolve timezone", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load the configuration snapshot; a missing snapshot aborts the run
	store := snapshot.NewStore(cfg.ConfigPath, cfg.DryRun, logger)
	snap, err := store.Load()
	if err != nil {
		logger.Error("failed to load configuration snapshot", "error", err)
		os.Exit(1)
	}

	// Optional execution-log database; auditing problems never block posting
	var sink runner.ExecutionSink
	if cfg.ExecLogDBPath != "" && !cfg.DryRun {
		execLog, err := database.Open(ctx, cfg.ExecLogDBPath)
		if err != nil {
			logger.Warn("execution log disabled, database unavailable", "error", err)
		} else {
			defer execLog.Close()
			sink = execLog
		}
	}

	clients := func(account models.Account) (runner.API, error) {
		if cfg.DryRun {
			return twitter.NewDryRunClient(account, logger), nil
		}
		return twitter.NewClient(account, logger)
	}

	r := runner.New(runner.Deps{
		Config:   cfg,
		Logger:   logger,
		Snapshot: snap,
		Location: loc,
		Clients:  clients,
		ExecLog:  sink,
	})

	app := &appContext{
		ctx:    ctx,
		logger: logger,
		store:  store,
		snap:   snap,
		runner: r,
	}
	kctx.FatalIfErrorf(kctx.Run(app))
	os.Exit(app.exitCode)
}

func setupLogger(cfg *config.Config) *slog.Logger {
	var out io.Writer = os.Stdout
	noColor := false
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
		noColor = true
	}

	var handler slog.Handler
	logLevel := parseLevel(cfg.LogLevel)

	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: logLevel,
		})
	} else {
		// Pretty colored output for console
		handler = tint.NewHandler(out, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.DateTime,
			NoColor:    noColor,
		})
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
