// Package sweeper finds comments left in communities the account no longer
// subscribes to, archives them and deletes them.
package sweeper

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/comment-sweeper/internal/core"
	"github.com/bakkerme/comment-sweeper/internal/observability/otelx"
	"github.com/bakkerme/comment-sweeper/internal/reddit"
)

const (
	PhaseSubscriptions = "subscriptions"
	PhaseComments      = "comments"
)

// FetchSubscriptions walks every page of the account's subscriptions.
func FetchSubscriptions(ctx context.Context, session reddit.Session, limits Limits) (set core.SubscribedSet, err error) {
	ctx = core.WithLogAttrs(ctx, "phase", PhaseSubscriptions)
	logger := core.LoggerFromContext(ctx)
	ctx, span := otelx.StartSpan(ctx, "sweeper.subscriptions")
	defer func() { otelx.EndSpan(span, err) }()

	set = core.NewSubscribedSet()
	p := newPager(PhaseSubscriptions, limits)
	for !p.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cursor := p.Cursor()
		page, err := session.SubscribedPage(ctx, cursor)
		if err != nil {
			return nil, &core.FetchError{Phase: PhaseSubscriptions, Cursor: cursor, Err: err}
		}
		for _, name := range page.Names {
			set.Add(name)
		}
		if page.Skipped > 0 {
			logger.Debug("skipped subscription entries without display_name", "count", page.Skipped, "after", cursor)
		}
		if err := p.Advance(page.After); err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("subscriptions.count", set.Len()), attribute.Int("subscriptions.pages", p.Pages()))
	logger.Info("fetched subscriptions", "count", set.Len(), "pages", p.Pages())
	return set, nil
}
