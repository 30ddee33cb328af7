// Package factory builds run components from resolved settings.
package factory

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bakkerme/comment-sweeper/internal/archive"
	"github.com/bakkerme/comment-sweeper/internal/config"
	"github.com/bakkerme/comment-sweeper/internal/core"
	"github.com/bakkerme/comment-sweeper/internal/reddit"
	redditimpl "github.com/bakkerme/comment-sweeper/internal/reddit/impl"
	"github.com/bakkerme/comment-sweeper/internal/sweeper"
	"github.com/bakkerme/comment-sweeper/internal/trigger"
)

// ArchiveOpener opens the archive for one run.
type ArchiveOpener func(path string, mode archive.Mode) (archive.Archiver, error)

type Factory struct {
	Logger       *slog.Logger
	Settings     config.Settings
	RedditClient reddit.Client
	OpenArchive  ArchiveOpener
}

// NewFromSettings wires the Reddit backend named by settings. A non-nil
// transport replaces the default HTTP transport of either backend.
func NewFromSettings(logger *slog.Logger, settings config.Settings, transport http.RoundTripper) (*Factory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := newRedditClient(logger, settings.Reddit, transport)
	if err != nil {
		return nil, err
	}
	return &Factory{
		Logger:       logger,
		Settings:     settings,
		RedditClient: client,
		OpenArchive:  openFile,
	}, nil
}

func newRedditClient(logger *slog.Logger, cfg config.RedditEnvConfig, transport http.RoundTripper) (reddit.Client, error) {
	switch cfg.Backend {
	case "", config.BackendHTTP:
		client := redditimpl.NewClient(cfg.HTTPTimeout, cfg.TokenURL, cfg.APIURL)
		if transport != nil {
			client.WithTransport(transport)
		}
		return client, nil
	case config.BackendGoReddit:
		client := reddit.NewGoRedditClient(logger, cfg.HTTPTimeout, cfg.TokenURL, cfg.APIURL)
		if transport != nil {
			client.WithTransport(transport)
		}
		return client, nil
	default:
		return nil, &core.ConfigError{Err: fmt.Errorf("unsupported REDDIT_BACKEND %q", cfg.Backend)}
	}
}

func openFile(path string, mode archive.Mode) (archive.Archiver, error) {
	return archive.Open(path, mode)
}

// Archive opens the run's archive. Dry runs never touch the file.
func (f *Factory) Archive() (archive.Archiver, error) {
	if f.Settings.DryRun {
		return archive.Discard{}, nil
	}
	mode := archive.ModeAppend
	if f.Settings.Fresh {
		mode = archive.ModeTruncate
	}
	open := f.OpenArchive
	if open == nil {
		open = openFile
	}
	return open(f.Settings.ArchivePath, mode)
}

func (f *Factory) Protector() (*sweeper.Protector, error) {
	return sweeper.NewProtector(f.Settings.Protect.Subreddits, f.Settings.Protect.Rule)
}

func (f *Factory) Limits() sweeper.Limits {
	return sweeper.Limits{MaxPages: f.Settings.MaxPages}
}

// Trigger returns the configured cron trigger, or nil when runs are not
// scheduled.
func (f *Factory) Trigger() (*trigger.Cron, error) {
	if f.Settings.Schedule.Cron == "" {
		return nil, nil
	}
	cron := trigger.NewCron(f.Settings.Schedule.Cron, f.Settings.Schedule.Timezone)
	if err := cron.Validate(); err != nil {
		return nil, err
	}
	return cron, nil
}
