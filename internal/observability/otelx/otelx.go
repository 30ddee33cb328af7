// Package otelx exports sweep traces over OTLP.
package otelx

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/bakkerme/comment-sweeper/internal/config"
	"github.com/bakkerme/comment-sweeper/internal/core"
)

const (
	protocolGRPC = "grpc"
	protocolHTTP = "http/protobuf"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// target is a resolved OTLP destination.
type target struct {
	protocol string
	endpoint string
	isURL    bool
}

func resolveTarget(cfg config.OTelEnvConfig) (target, error) {
	t := target{protocol: strings.ToLower(strings.TrimSpace(cfg.Protocol))}
	switch t.protocol {
	case "", protocolGRPC:
		t.protocol = protocolGRPC
	case "http", protocolHTTP:
		t.protocol = protocolHTTP
	default:
		return target{}, fmt.Errorf("unsupported OTEL_EXPORTER_OTLP_PROTOCOL %q (expected grpc or http/protobuf)", cfg.Protocol)
	}

	t.endpoint = strings.TrimSpace(cfg.Endpoint)
	if t.endpoint == "" {
		t.endpoint = "localhost:4317"
		if t.protocol == protocolHTTP {
			t.endpoint = "localhost:4318"
		}
		return t, nil
	}
	if !strings.Contains(t.endpoint, "://") {
		return t, nil
	}
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return target{}, fmt.Errorf("parse OTEL_EXPORTER_OTLP_ENDPOINT: %w", err)
	}
	if t.protocol == protocolGRPC {
		// the grpc exporter takes host:port only
		t.endpoint = u.Host
		return t, nil
	}
	t.isURL = true
	return t, nil
}

func (t target) exporter(ctx context.Context, cfg config.OTelEnvConfig) (*otlptrace.Exporter, error) {
	if t.protocol == protocolHTTP {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(t.endpoint)}
		if t.isURL {
			opts = []otlptracehttp.Option{otlptracehttp.WithEndpointURL(t.endpoint)}
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(t.endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return otlptracegrpc.New(ctx, opts...)
}

// sweepAttributes describe how this process sweeps, so traces from dry runs
// or scheduled deployments can be told apart.
func sweepAttributes(s config.Settings) []attribute.KeyValue {
	mode := "once"
	if s.Schedule.Cron != "" {
		mode = "scheduled"
	}
	archiveMode := "append"
	if s.Fresh {
		archiveMode = "fresh"
	}
	return []attribute.KeyValue{
		attribute.String("sweeper.reddit.backend", s.Reddit.Backend),
		attribute.Bool("sweeper.dry_run", s.DryRun),
		attribute.String("sweeper.mode", mode),
		attribute.String("sweeper.archive.mode", archiveMode),
		attribute.Int("sweeper.max_pages", s.MaxPages),
	}
}

func newResource(ctx context.Context, s config.Settings) (*resource.Resource, error) {
	serviceName := strings.TrimSpace(s.OTel.ServiceName)
	if serviceName == "" {
		serviceName = "comment-sweeper"
	}
	attrs := append([]attribute.KeyValue{semconv.ServiceName(serviceName)}, sweepAttributes(s)...)
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}

// Init installs a global OTLP tracer provider described by s.OTel. When
// tracing is disabled the returned shutdown is a no-op and spans go to the
// default no-op provider.
func Init(ctx context.Context, logger *slog.Logger, s config.Settings) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !s.OTel.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	t, err := resolveTarget(s.OTel)
	if err != nil {
		return nil, &core.ConfigError{Err: err}
	}
	exp, err := t.exporter(ctx, s.OTel)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	res, err := newResource(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	sampleRatio := min(max(s.OTel.SampleRatio, 0), 1)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(2*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
	)
	otel.SetTracerProvider(tp)

	logger.Info("tracing enabled",
		"otlp_endpoint", t.endpoint,
		"otlp_protocol", t.protocol,
		"sample_ratio", sampleRatio,
		"backend", s.Reddit.Backend,
		"dry_run", s.DryRun,
	)
	return ShutdownFunc(tp.Shutdown), nil
}
