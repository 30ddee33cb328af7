package factory

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/bakkerme/comment-sweeper/internal/archive"
	"github.com/bakkerme/comment-sweeper/internal/config"
	"github.com/bakkerme/comment-sweeper/internal/core"
	"github.com/bakkerme/comment-sweeper/internal/reddit"
	redditimpl "github.com/bakkerme/comment-sweeper/internal/reddit/impl"
)

func TestNewFromSettings_SelectsBackend(t *testing.T) {
	f, err := NewFromSettings(nil, config.Settings{Reddit: config.RedditEnvConfig{Backend: config.BackendHTTP}}, nil)
	if err != nil {
		t.Fatalf("http backend: %v", err)
	}
	if _, ok := f.RedditClient.(*redditimpl.Client); !ok {
		t.Fatalf("expected impl client, got %T", f.RedditClient)
	}

	f, err = NewFromSettings(nil, config.Settings{Reddit: config.RedditEnvConfig{Backend: config.BackendGoReddit}}, nil)
	if err != nil {
		t.Fatalf("goreddit backend: %v", err)
	}
	if _, ok := f.RedditClient.(*reddit.GoRedditClient); !ok {
		t.Fatalf("expected go-reddit client, got %T", f.RedditClient)
	}

	_, err = NewFromSettings(nil, config.Settings{Reddit: config.RedditEnvConfig{Backend: "carrier"}}, nil)
	var cfgErr *core.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestFactory_ArchiveModes(t *testing.T) {
	var gotMode archive.Mode
	var gotPath string
	f := &Factory{
		Settings: config.Settings{ArchivePath: "comments.json", Fresh: true},
		OpenArchive: func(path string, mode archive.Mode) (archive.Archiver, error) {
			gotPath, gotMode = path, mode
			return archive.Discard{}, nil
		},
	}
	if _, err := f.Archive(); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if gotPath != "comments.json" || gotMode != archive.ModeTruncate {
		t.Fatalf("opened %q with mode %v", gotPath, gotMode)
	}

	f.Settings.Fresh = false
	if _, err := f.Archive(); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if gotMode != archive.ModeAppend {
		t.Fatalf("expected append mode, got %v", gotMode)
	}
}

func TestFactory_DryRunSkipsArchiveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.json")
	f := &Factory{Settings: config.Settings{ArchivePath: path, DryRun: true}}
	a, err := f.Archive()
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, ok := a.(archive.Discard); !ok {
		t.Fatalf("expected Discard archiver, got %T", a)
	}
}

func TestFactory_Trigger(t *testing.T) {
	f := &Factory{}
	cron, err := f.Trigger()
	if err != nil || cron != nil {
		t.Fatalf("no schedule: cron=%v err=%v", cron, err)
	}

	f.Settings.Schedule = config.ScheduleConfig{Cron: "0 3 * * *", Timezone: "UTC"}
	cron, err = f.Trigger()
	if err != nil || cron == nil {
		t.Fatalf("schedule: cron=%v err=%v", cron, err)
	}

	f.Settings.Schedule.Cron = "whenever"
	if _, err := f.Trigger(); err == nil {
		t.Fatalf("expected error for invalid schedule")
	}
}
