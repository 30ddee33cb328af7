package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/bakkerme/comment-sweeper/internal/archive"
	"github.com/bakkerme/comment-sweeper/internal/config"
	"github.com/bakkerme/comment-sweeper/internal/observability/otelx"
	"github.com/bakkerme/comment-sweeper/internal/runner"
	"github.com/bakkerme/comment-sweeper/internal/runner/factory"
)

func main() {
	envFile := flag.String("env-file", getenv("ENV_FILE", ".env"), "env file to load before reading the environment")
	configPath := flag.String("config", "", "path to sweeper document (default $SWEEPER_CONFIG or sweeper.yaml)")
	archivePath := flag.String("archive", "", "archive file for deleted comments (default $ARCHIVE_PATH or comments.json)")
	fresh := flag.Bool("fresh", false, "truncate the archive before the run instead of appending")
	dryRun := flag.Bool("dry-run", false, "report orphaned comments without archiving or deleting them")
	schedule := flag.String("schedule", "", "cron schedule; run repeatedly instead of once")
	inspect := flag.String("inspect", "", "summarize an archive file and exit")
	flag.Parse()

	if *inspect != "" {
		if err := inspectArchive(os.Stdout, *inspect); err != nil {
			log.Fatalf("inspect failed: %v", err)
		}
		return
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load env file %s: %v", *envFile, err)
	}

	env := config.LoadEnv()
	if *configPath != "" {
		env.ConfigPath = *configPath
	}
	doc, err := config.LoadDocument(env.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load document: %v", err)
	}
	settings := config.Merge(doc, env)

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "archive":
			settings.ArchivePath = *archivePath
		case "fresh":
			settings.Fresh = *fresh
		case "dry-run":
			settings.DryRun = *dryRun
		case "schedule":
			settings.Schedule.Cron = *schedule
		}
	})

	if err := settings.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger := newLogger(settings.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := otelx.Init(ctx, logger, settings)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	f, err := factory.NewFromSettings(logger, settings, nil)
	if err != nil {
		log.Fatalf("failed to build sweeper: %v", err)
	}
	trigger, err := f.Trigger()
	if err != nil {
		log.Fatalf("invalid schedule: %v", err)
	}

	r := runner.New(logger, f)

	if trigger == nil {
		if _, err := r.RunOnce(ctx); err != nil {
			log.Fatalf("run failed: %v", err)
		}
		return
	}

	events, err := trigger.Start(ctx)
	if err != nil {
		log.Fatalf("failed to start schedule: %v", err)
	}
	logger.Info("waiting for scheduled runs", "schedule", trigger.Schedule(), "timezone", settings.Schedule.Timezone)
	if err := r.Start(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("runner stopped: %v", err)
	}
}

func newLogger(cfg config.LogEnvConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func inspectArchive(w io.Writer, path string) error {
	records, err := archive.ReadFile(path)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SUBREDDIT\tCOMMENTS\tOLDEST\tNEWEST\n")
	for _, c := range archive.Summarize(records) {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", c.Subreddit, c.Count, formatUnix(c.Oldest), formatUnix(c.Newest))
	}
	fmt.Fprintf(tw, "total\t%d\t\t\n", len(records))
	return tw.Flush()
}

func formatUnix(ts float64) string {
	return time.Unix(int64(ts), 0).UTC().Format(time.DateOnly)
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
