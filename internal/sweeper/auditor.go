package sweeper

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/comment-sweeper/internal/archive"
	"github.com/bakkerme/comment-sweeper/internal/core"
	"github.com/bakkerme/comment-sweeper/internal/observability/otelx"
	"github.com/bakkerme/comment-sweeper/internal/reddit"
)

// Auditor walks a user's comment history and removes comments left in
// communities outside the subscribed set.
type Auditor struct {
	archiver  archive.Archiver
	protector *Protector
	limits    Limits
	dryRun    bool
}

type AuditorOption func(*Auditor)

func WithProtector(p *Protector) AuditorOption {
	return func(a *Auditor) { a.protector = p }
}

func WithLimits(l Limits) AuditorOption {
	return func(a *Auditor) { a.limits = l }
}

// WithDryRun makes the auditor report orphaned comments without archiving or
// deleting them.
func WithDryRun(dryRun bool) AuditorOption {
	return func(a *Auditor) { a.dryRun = dryRun }
}

func NewAuditor(archiver archive.Archiver, opts ...AuditorOption) *Auditor {
	a := &Auditor{archiver: archiver}
	for _, opt := range opts {
		opt(a)
	}
	if a.archiver == nil || a.dryRun {
		a.archiver = archive.Discard{}
	}
	return a
}

// Run audits every page of username's comments. Stats are returned even when
// the run stops early.
func (a *Auditor) Run(ctx context.Context, session reddit.Session, username string, subscribed core.SubscribedSet) (stats core.AuditStats, err error) {
	ctx = core.WithLogAttrs(ctx, "phase", PhaseComments)
	logger := core.LoggerFromContext(ctx)
	ctx, span := otelx.StartSpan(ctx, "sweeper.audit", attribute.Bool("sweeper.dry_run", a.dryRun))
	defer func() {
		span.SetAttributes(
			attribute.Int("audit.examined", stats.Examined),
			attribute.Int("audit.deleted", stats.Deleted),
			attribute.Int("audit.delete_failures", stats.DeleteFailures),
		)
		otelx.EndSpan(span, err)
	}()

	p := newPager(PhaseComments, a.limits)
	for !p.Done() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		cursor := p.Cursor()
		page, err := session.CommentsPage(ctx, username, cursor)
		if err != nil {
			return stats, &core.FetchError{Phase: PhaseComments, Cursor: cursor, Err: err}
		}
		stats.Pages++
		logger.Debug("fetched comment page", "after", cursor, "comments", len(page.Records))

		for _, record := range page.Records {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := a.audit(ctx, logger, session, record, subscribed, &stats); err != nil {
				return stats, err
			}
		}
		if err := p.Advance(page.After); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (a *Auditor) audit(ctx context.Context, logger *slog.Logger, session reddit.Session, record core.CommentRecord, subscribed core.SubscribedSet, stats *core.AuditStats) error {
	comment, err := record.Decode()
	if err != nil {
		return err
	}
	stats.Examined++
	logger.Info("checking comment", "comment_id", comment.ID, "subreddit", comment.Subreddit)

	if subscribed.Contains(comment.Subreddit) {
		stats.Kept++
		return nil
	}
	protected, reason, err := a.protector.Protected(comment)
	if err != nil {
		return err
	}
	if protected {
		stats.Protected++
		logger.Info("keeping protected comment", "comment_id", comment.ID, "subreddit", comment.Subreddit, "reason", reason)
		return nil
	}

	if err := a.archiver.Archive(ctx, core.NewArchiveRecord(comment)); err != nil {
		return err
	}
	if a.dryRun {
		logger.Info("dry run: would delete comment", "comment_id", comment.ID, "subreddit", comment.Subreddit)
		return nil
	}
	stats.Archived++

	if err := session.DeleteComment(ctx, comment.FullName()); err != nil {
		var deleteErr *core.DeleteError
		if !errors.As(err, &deleteErr) || core.IsFatal(err) {
			return err
		}
		stats.DeleteFailures++
		logger.Warn("delete failed", "comment_id", comment.ID, "subreddit", comment.Subreddit, "status", deleteErr.StatusCode, "body", deleteErr.Body, "error", err)
		return nil
	}
	stats.Deleted++
	logger.Info("deleted comment", "comment_id", comment.ID, "subreddit", comment.Subreddit)
	return nil
}
