package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/comment-sweeper/internal/core"
	"github.com/bakkerme/comment-sweeper/internal/observability/otelx"
	"github.com/bakkerme/comment-sweeper/internal/runner/factory"
	"github.com/bakkerme/comment-sweeper/internal/runner/snapshot"
	"github.com/bakkerme/comment-sweeper/internal/sweeper"
)

type Runner struct {
	logger  *slog.Logger
	factory *factory.Factory
}

func New(logger *slog.Logger, f *factory.Factory) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger, factory: f}
}

// Start runs a sweep for every event until ctx is cancelled or events is
// closed. Runs never overlap; a failed run is logged and the next event is
// awaited.
func (r *Runner) Start(ctx context.Context, events <-chan core.TriggerEvent) error {
	if events == nil {
		return fmt.Errorf("trigger events are required")
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			r.logger.Info("trigger event", "time", event.Timestamp, "schedule", event.Metadata["schedule"])
			run, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error("sweep failed", "run_id", run.ID, "error", err)
			}
		}
	}
}

// RunOnce performs one complete sweep. The returned Run is never nil, even on
// failure, so callers can report how far it got.
func (r *Runner) RunOnce(ctx context.Context) (run *core.Run, err error) {
	settings := r.factory.Settings
	run = &core.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    core.RunStatusRunning,
		DryRun:    settings.DryRun,
	}
	ctx = core.WithRunID(ctx, run.ID)
	ctx = core.WithLogAttrs(core.WithLogger(ctx, r.logger), "run_id", run.ID, "username", settings.Credentials.Username)
	ctx, span := otelx.StartSpan(ctx, "sweeper.run", attribute.Bool("sweeper.dry_run", settings.DryRun))

	defer func() {
		r.finish(ctx, run, err)
		span.SetAttributes(
			attribute.String("run.status", string(run.Status)),
			attribute.Int("run.deleted", run.Stats.Deleted),
		)
		otelx.EndSpan(span, err)
	}()

	if err := settings.Credentials.Validate(); err != nil {
		return run, err
	}
	protector, err := r.factory.Protector()
	if err != nil {
		return run, err
	}

	core.LoggerFromContext(ctx).Info("starting sweep", "dry_run", settings.DryRun, "archive", settings.ArchivePath)
	session, err := r.factory.RedditClient.Authenticate(ctx, settings.Credentials)
	if err != nil {
		return run, err
	}

	subscribed, err := sweeper.FetchSubscriptions(ctx, session, r.factory.Limits())
	if err != nil {
		return run, err
	}
	run.Subscribed = subscribed.Len()

	archiver, err := r.factory.Archive()
	if err != nil {
		return run, err
	}
	defer func() {
		if closeErr := archiver.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	auditor := sweeper.NewAuditor(archiver,
		sweeper.WithProtector(protector),
		sweeper.WithLimits(r.factory.Limits()),
		sweeper.WithDryRun(settings.DryRun),
	)
	run.Stats, err = auditor.Run(ctx, session, settings.Credentials.Username, subscribed)
	return run, err
}

func (r *Runner) finish(ctx context.Context, run *core.Run, err error) {
	logger := core.LoggerFromContext(ctx)
	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt

	switch {
	case err == nil:
		run.Status = core.RunStatusCompleted
	case errors.Is(err, context.Canceled):
		run.Status = core.RunStatusCancelled
		run.Error = err.Error()
	default:
		run.Status = core.RunStatusFailed
		run.Error = err.Error()
	}

	logger.Info("sweep finished",
		"status", run.Status,
		"duration", completedAt.Sub(run.StartedAt),
		"subscribed", run.Subscribed,
		"examined", run.Stats.Examined,
		"kept", run.Stats.Kept,
		"protected", run.Stats.Protected,
		"archived", run.Stats.Archived,
		"deleted", run.Stats.Deleted,
		"delete_failures", run.Stats.DeleteFailures,
	)

	if path := r.factory.Settings.ReportPath; path != "" {
		if saveErr := snapshot.Save(path, run); saveErr != nil {
			logger.Warn("failed to write run snapshot", "path", path, "error", saveErr)
		}
	}
}
