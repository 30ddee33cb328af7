package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv("USER_AGENT", "script:sweeper:v1 (by /u/alice)")
	t.Setenv("CLIENT_ID", "id")
	t.Setenv("CLIENT_SECRET", "secret")
	t.Setenv("USERNAME", "alice")
	t.Setenv("PASSWORD", "hunter2")
}

func TestLoadEnv_Credentials(t *testing.T) {
	setCredentials(t)
	env := LoadEnv()
	want := core.Credentials{
		UserAgent:    "script:sweeper:v1 (by /u/alice)",
		ClientID:     "id",
		ClientSecret: "secret",
		Username:     "alice",
		Password:     "hunter2",
	}
	if diff := cmp.Diff(want, env.Credentials); diff != "" {
		t.Fatalf("credentials mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnv_MissingCredentialFailsValidation(t *testing.T) {
	setCredentials(t)
	t.Setenv("CLIENT_SECRET", "")

	settings := Merge(nil, LoadEnv())
	err := settings.Validate()
	var cfgErr *core.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if diff := cmp.Diff([]string{"CLIENT_SECRET"}, cfgErr.Missing); diff != "" {
		t.Fatalf("missing mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnv_Defaults(t *testing.T) {
	setCredentials(t)
	t.Setenv("REDDIT_HTTP_TIMEOUT", "")
	t.Setenv("ARCHIVE_PATH", "")
	t.Setenv("MAX_PAGES", "")
	t.Setenv("DRY_RUN", "")
	t.Setenv("ARCHIVE_FRESH", "")
	t.Setenv("REDDIT_BACKEND", "")

	settings := Merge(nil, LoadEnv())
	if settings.ArchivePath != DefaultArchivePath {
		t.Fatalf("archive path = %q", settings.ArchivePath)
	}
	if settings.MaxPages != DefaultMaxPages {
		t.Fatalf("max pages = %d", settings.MaxPages)
	}
	if settings.Reddit.HTTPTimeout != 30*time.Second {
		t.Fatalf("timeout = %v", settings.Reddit.HTTPTimeout)
	}
	if settings.Reddit.Backend != BackendHTTP {
		t.Fatalf("backend = %q", settings.Reddit.Backend)
	}
	if settings.DryRun || settings.Fresh {
		t.Fatalf("dry run and fresh should default to false")
	}
	if err := settings.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestMerge_EnvOverridesDocument(t *testing.T) {
	setCredentials(t)
	t.Setenv("ARCHIVE_PATH", "/tmp/env-archive.json")
	t.Setenv("MAX_PAGES", "5")
	t.Setenv("DRY_RUN", "")
	t.Setenv("ARCHIVE_FRESH", "yes")
	t.Setenv("PROTECT_SUBREDDITS", "AskHistorians, golang ,")
	t.Setenv("PROTECT_RULE", "")
	t.Setenv("RUN_REPORT_PATH", "")

	doc := &SweeperDocument{
		Archive: ArchiveConfig{Path: "doc.json"},
		Limits:  LimitsConfig{MaxPages: 50},
		DryRun:  true,
		Protect: ProtectConfig{Subreddits: []string{"rust"}, Rule: "age_days < 7"},
		Report:  ReportConfig{Path: "runs/last.json"},
	}
	settings := Merge(doc, LoadEnv())

	if settings.ArchivePath != "/tmp/env-archive.json" {
		t.Errorf("archive path = %q", settings.ArchivePath)
	}
	if settings.MaxPages != 5 {
		t.Errorf("max pages = %d", settings.MaxPages)
	}
	if !settings.DryRun {
		t.Errorf("dry run from document should survive an unset env var")
	}
	if !settings.Fresh {
		t.Errorf("fresh should come from ARCHIVE_FRESH")
	}
	if diff := cmp.Diff([]string{"AskHistorians", "golang"}, settings.Protect.Subreddits); diff != "" {
		t.Errorf("protect subreddits mismatch (-want +got):\n%s", diff)
	}
	if settings.Protect.Rule != "age_days < 7" {
		t.Errorf("protect rule = %q", settings.Protect.Rule)
	}
	if settings.ReportPath != "runs/last.json" {
		t.Errorf("report path = %q", settings.ReportPath)
	}
}

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweeper.yaml")
	yamlDoc := `
archive:
  path: archive/comments.json
  fresh: true
limits:
  max_pages: 20
dry_run: true
protect:
  subreddits: [AskHistorians]
  rule: "body.length > 500"
schedule:
  cron: "0 3 * * *"
  timezone: UTC
report:
  path: runs/last.json
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}

	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	want := &SweeperDocument{
		Archive:  ArchiveConfig{Path: "archive/comments.json", Fresh: true},
		Limits:   LimitsConfig{MaxPages: 20},
		DryRun:   true,
		Protect:  ProtectConfig{Subreddits: []string{"AskHistorians"}, Rule: "body.length > 500"},
		Schedule: ScheduleConfig{Cron: "0 3 * * *", Timezone: "UTC"},
		Report:   ReportConfig{Path: "runs/last.json"},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDocument_MissingFileIsEmpty(t *testing.T) {
	doc, err := LoadDocument(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(&SweeperDocument{}, doc); diff != "" {
		t.Fatalf("expected empty document (-want +got):\n%s", diff)
	}
}

func TestLoadDocument_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("archive: [unterminated"), 0o600); err != nil {
		t.Fatalf("write document: %v", err)
	}
	_, err := LoadDocument(path)
	var cfgErr *core.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestSettingsValidate_RejectsUnknownBackendAndTimezone(t *testing.T) {
	setCredentials(t)
	settings := Merge(nil, LoadEnv())

	settings.Reddit.Backend = "carrier-pigeon"
	if err := settings.Validate(); err == nil {
		t.Fatalf("expected backend error")
	}

	settings.Reddit.Backend = BackendGoReddit
	settings.Schedule.Timezone = "Mars/Olympus_Mons"
	if err := settings.Validate(); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestParseHeaders(t *testing.T) {
	got := parseHeaders("a=1, b = 2,broken,=x")
	want := map[string]string{"a": "1", "b": "2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestSettingsValidate_RejectsMalformedMaxPages(t *testing.T) {
	for _, value := range []string{"1O0", "ten", "-5"} {
		t.Run(value, func(t *testing.T) {
			setCredentials(t)
			t.Setenv("MAX_PAGES", value)

			settings := Merge(&SweeperDocument{Limits: LimitsConfig{MaxPages: 20}}, LoadEnv())
			err := settings.Validate()
			var cfgErr *core.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if !strings.Contains(err.Error(), "MAX_PAGES") {
				t.Fatalf("error %q does not name MAX_PAGES", err)
			}
		})
	}
}

func TestLoadEnv_MaxPages(t *testing.T) {
	t.Setenv("MAX_PAGES", " 25 ")
	env := LoadEnv()
	if env.MaxPages == nil || *env.MaxPages != 25 {
		t.Fatalf("max pages = %v", env.MaxPages)
	}
	if len(env.Invalid) != 0 {
		t.Fatalf("unexpected invalid values: %v", env.Invalid)
	}
}
