package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bakkerme/comment-sweeper/internal/core"
)

type EnvConfig struct {
	ConfigPath  string
	Credentials core.Credentials
	Reddit      RedditEnvConfig
	Archive     ArchiveEnvConfig
	MaxPages    *int
	DryRun      *bool
	Protect     ProtectEnvConfig
	Schedule    ScheduleEnvConfig
	ReportPath  string
	Log         LogEnvConfig
	OTel        OTelEnvConfig

	// Invalid holds values that were set but could not be parsed.
	Invalid []error
}

type RedditEnvConfig struct {
	Backend     string // "http" or "goreddit"
	HTTPTimeout time.Duration
	TokenURL    string
	APIURL      string
}

type ArchiveEnvConfig struct {
	Path  string
	Fresh *bool
}

type ProtectEnvConfig struct {
	Subreddits []string
	Rule       string
}

type ScheduleEnvConfig struct {
	Cron     string
	Timezone string
}

type LogEnvConfig struct {
	Level  string
	Format string // "text" or "json"
}

type OTelEnvConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	Protocol    string // "grpc" or "http/protobuf"
	Headers     map[string]string
	Insecure    bool
	SampleRatio float64
}

// LoadEnv reads the process environment. Values that are not set stay empty
// (or nil) so that a Document can supply them; see Merge.
func LoadEnv() EnvConfig {
	otlpEndpoint := strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""))

	var invalid []error
	maxPages, err := envIntPtr("MAX_PAGES")
	if err != nil {
		invalid = append(invalid, err)
	} else if maxPages != nil && *maxPages < 0 {
		invalid = append(invalid, fmt.Errorf("MAX_PAGES must not be negative, got %d", *maxPages))
		maxPages = nil
	}

	return EnvConfig{
		Invalid:    invalid,
		ConfigPath: envString("SWEEPER_CONFIG", "sweeper.yaml"),
		Credentials: core.Credentials{
			UserAgent:    envString("USER_AGENT", ""),
			ClientID:     envString("CLIENT_ID", ""),
			ClientSecret: envString("CLIENT_SECRET", ""),
			Username:     envString("USERNAME", ""),
			// Passwords are taken verbatim; surrounding spaces may be significant.
			Password: os.Getenv("PASSWORD"),
		},
		Reddit: RedditEnvConfig{
			Backend:     strings.ToLower(envString("REDDIT_BACKEND", "http")),
			HTTPTimeout: envDuration("REDDIT_HTTP_TIMEOUT", 30*time.Second),
			TokenURL:    envString("REDDIT_TOKEN_URL", ""),
			APIURL:      envString("REDDIT_API_URL", ""),
		},
		Archive: ArchiveEnvConfig{
			Path:  envString("ARCHIVE_PATH", ""),
			Fresh: envBoolPtr("ARCHIVE_FRESH"),
		},
		MaxPages: maxPages,
		DryRun:   envBoolPtr("DRY_RUN"),
		Protect: ProtectEnvConfig{
			Subreddits: envList("PROTECT_SUBREDDITS"),
			Rule:       envString("PROTECT_RULE", ""),
		},
		Schedule: ScheduleEnvConfig{
			Cron:     envString("SWEEP_SCHEDULE", ""),
			Timezone: envString("SWEEP_TIMEZONE", ""),
		},
		ReportPath: envString("RUN_REPORT_PATH", ""),
		Log: LogEnvConfig{
			Level:  strings.ToLower(envString("LOG_LEVEL", "info")),
			Format: strings.ToLower(envString("LOG_FORMAT", "text")),
		},
		OTel: OTelEnvConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			ServiceName: strings.TrimSpace(envString("OTEL_SERVICE_NAME", "comment-sweeper")),
			Endpoint:    otlpEndpoint,
			Protocol:    strings.ToLower(strings.TrimSpace(envString("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			Headers:     parseHeaders(envString("OTEL_EXPORTER_OTLP_HEADERS", "")),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", defaultInsecure(otlpEndpoint)),
			SampleRatio: clamp01(envFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0)),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return parseBool(v)
}

func envBoolPtr(key string) *bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b := parseBool(v)
	return &b
}

func envIntPtr(key string) (*int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return &i, nil
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func parseHeaders(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func defaultInsecure(endpoint string) bool {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return true
	}
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return u.Scheme == "http"
	}
	return strings.HasPrefix(endpoint, "localhost:") ||
		strings.HasPrefix(endpoint, "127.0.0.1:") ||
		strings.HasPrefix(endpoint, "0.0.0.0:")
}
