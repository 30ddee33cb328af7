package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

const (
	DefaultArchivePath = "comments.json"
	DefaultMaxPages    = 1000

	BackendHTTP     = "http"
	BackendGoReddit = "goreddit"
)

// SweeperDocument represents the optional sweeper.yaml file. Credentials are
// never read from it; they come from the environment only.
type SweeperDocument struct {
	Archive  ArchiveConfig  `yaml:"archive"`
	Limits   LimitsConfig   `yaml:"limits"`
	DryRun   bool           `yaml:"dry_run,omitempty"`
	Protect  ProtectConfig  `yaml:"protect,omitempty"`
	Schedule ScheduleConfig `yaml:"schedule,omitempty"`
	Report   ReportConfig   `yaml:"report,omitempty"`
}

// ArchiveConfig controls where deleted comments are recorded
type ArchiveConfig struct {
	Path  string `yaml:"path,omitempty"`
	Fresh bool   `yaml:"fresh,omitempty"`
}

// LimitsConfig bounds pagination
type LimitsConfig struct {
	MaxPages int `yaml:"max_pages,omitempty"`
}

// ProtectConfig keeps comments that would otherwise be swept
type ProtectConfig struct {
	Subreddits []string `yaml:"subreddits,omitempty"`
	Rule       string   `yaml:"rule,omitempty"`
}

// ScheduleConfig turns on repeated runs
type ScheduleConfig struct {
	Cron     string `yaml:"cron,omitempty"`
	Timezone string `yaml:"timezone,omitempty"`
}

// ReportConfig writes a JSON summary of every run
type ReportConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoadDocument reads a sweeper document. A missing file yields an empty document.
func LoadDocument(path string) (*SweeperDocument, error) {
	doc := &SweeperDocument{}
	if strings.TrimSpace(path) == "" {
		return doc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return nil, &core.ConfigError{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	if err := yaml.Unmarshal(data, doc); err != nil {
		return nil, &core.ConfigError{Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	return doc, nil
}

// Settings is the resolved configuration for a sweep.
type Settings struct {
	Credentials core.Credentials
	Reddit      RedditEnvConfig
	ArchivePath string
	Fresh       bool
	MaxPages    int
	DryRun      bool
	Protect     ProtectConfig
	Schedule    ScheduleConfig
	ReportPath  string
	Log         LogEnvConfig
	OTel        OTelEnvConfig

	invalid []error
}

// Merge resolves the document and environment into Settings. Environment
// values win over document values; defaults fill whatever is left.
func Merge(doc *SweeperDocument, env EnvConfig) Settings {
	if doc == nil {
		doc = &SweeperDocument{}
	}
	s := Settings{
		Credentials: env.Credentials,
		Reddit:      env.Reddit,
		ArchivePath: doc.Archive.Path,
		Fresh:       doc.Archive.Fresh,
		MaxPages:    doc.Limits.MaxPages,
		DryRun:      doc.DryRun,
		Protect: ProtectConfig{
			Subreddits: append([]string(nil), doc.Protect.Subreddits...),
			Rule:       doc.Protect.Rule,
		},
		Schedule:   doc.Schedule,
		ReportPath: doc.Report.Path,
		Log:        env.Log,
		OTel:       env.OTel,
		invalid:    env.Invalid,
	}

	if env.Archive.Path != "" {
		s.ArchivePath = env.Archive.Path
	}
	if env.Archive.Fresh != nil {
		s.Fresh = *env.Archive.Fresh
	}
	if env.MaxPages != nil {
		s.MaxPages = *env.MaxPages
	}
	if env.DryRun != nil {
		s.DryRun = *env.DryRun
	}
	if len(env.Protect.Subreddits) > 0 {
		s.Protect.Subreddits = env.Protect.Subreddits
	}
	if env.Protect.Rule != "" {
		s.Protect.Rule = env.Protect.Rule
	}
	if env.Schedule.Cron != "" {
		s.Schedule.Cron = env.Schedule.Cron
	}
	if env.Schedule.Timezone != "" {
		s.Schedule.Timezone = env.Schedule.Timezone
	}

	if env.ReportPath != "" {
		s.ReportPath = env.ReportPath
	}

	if s.ArchivePath == "" {
		s.ArchivePath = DefaultArchivePath
	}
	if s.MaxPages <= 0 {
		s.MaxPages = DefaultMaxPages
	}
	if s.Reddit.Backend == "" {
		s.Reddit.Backend = BackendHTTP
	}
	if s.Reddit.HTTPTimeout <= 0 {
		s.Reddit.HTTPTimeout = 30 * time.Second
	}
	return s
}

// Validate checks everything that can be checked without touching the network.
func (s Settings) Validate() error {
	if err := s.Credentials.Validate(); err != nil {
		return err
	}
	if len(s.invalid) > 0 {
		return &core.ConfigError{Err: errors.Join(s.invalid...)}
	}
	switch s.Reddit.Backend {
	case BackendHTTP, BackendGoReddit:
	default:
		return &core.ConfigError{Err: fmt.Errorf("unsupported REDDIT_BACKEND %q (expected %s or %s)", s.Reddit.Backend, BackendHTTP, BackendGoReddit)}
	}
	if s.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(s.Schedule.Timezone); err != nil {
			return &core.ConfigError{Err: fmt.Errorf("invalid schedule timezone: %w", err)}
		}
	}
	return nil
}
