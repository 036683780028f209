package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Exporter selects where OpenTelemetry signals are sent.
// OTLP endpoints and headers are taken from the standard OTEL_EXPORTER_OTLP_* variables.
type Exporter string

const (
	ExporterNone     Exporter = "none"
	ExporterStdout   Exporter = "stdout"
	ExporterOTLPGRPC Exporter = "otlp-grpc"
	ExporterOTLPHTTP Exporter = "otlp-http"
)

// Config configures logging and telemetry export.
type Config struct {
	Level  slog.Level
	Format string // text|json

	LogExporter   Exporter
	TraceExporter Exporter

	ServiceName    string
	ServiceVersion string

	// Output receives human-readable logs and stdout exporter output. Defaults to os.Stdout.
	Output io.Writer
}

// ShutdownFunc flushes and stops telemetry pipelines.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger, the global OpenTelemetry providers and the
// W3C propagator. The returned function must be called before exit to flush exporters.
func Instrument(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	stdout, err := newStdoutHandler(out, cfg.Level, cfg.Format)
	if err != nil {
		return nil, err
	}
	// the OTel bridge correlates records with spans itself
	var handler slog.Handler = newTraceContextHandler(stdout)

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			"", // empty schema URL avoids conflicts with Default()
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var shutdownFuncs []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			errs = append(errs, shutdownFuncs[i](ctx))
		}
		return errors.Join(errs...)
	}

	tracerProvider, err := newTracerProvider(ctx, cfg.TraceExporter, out, res)
	if err != nil {
		return nil, err
	}
	if tracerProvider != nil {
		otel.SetTracerProvider(tracerProvider)
		shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	loggerProvider, err := newLoggerProvider(ctx, cfg.LogExporter, cfg.Level, out, res)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	if loggerProvider != nil {
		global.SetLoggerProvider(loggerProvider)
		shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
		handler = newFanoutHandler(handler, otelslog.NewHandler(cfg.ServiceName,
			otelslog.WithLoggerProvider(loggerProvider),
			otelslog.WithVersion(cfg.ServiceVersion),
		))
	}

	slog.SetDefault(slog.New(handler))

	return shutdown, nil
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(w io.Writer, level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	return handler, nil
}

// newLoggerProvider builds the OpenTelemetry log pipeline. It returns nil when log export is disabled.
func newLoggerProvider(ctx context.Context, exporter Exporter, level slog.Level, w io.Writer, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	var processor sdklog.Processor
	switch exporter {
	case ExporterNone, "":
		return nil, nil
	case ExporterStdout:
		exp, err := stdoutlog.New(stdoutlog.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout log exporter: %w", err)
		}
		processor = sdklog.NewSimpleProcessor(exp)
	case ExporterOTLPGRPC:
		exp, err := otlploggrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC log exporter: %w", err)
		}
		processor = sdklog.NewBatchProcessor(exp)
	case ExporterOTLPHTTP:
		exp, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP HTTP log exporter: %w", err)
		}
		processor = sdklog.NewBatchProcessor(exp)
	default:
		return nil, fmt.Errorf("unsupported log exporter %q (expected: none, stdout, otlp-grpc, otlp-http)", exporter)
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(minsev.NewLogProcessor(processor, minSeverity(level))),
	), nil
}

// newTracerProvider builds the span pipeline. It returns nil when trace export is disabled.
func newTracerProvider(ctx context.Context, exporter Exporter, w io.Writer, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var exp sdktrace.SpanExporter
	switch exporter {
	case ExporterNone, "":
		return nil, nil
	case ExporterStdout:
		var err error
		exp, err = stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
	case ExporterOTLPGRPC:
		var err error
		exp, err = otlptracegrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q (expected: none, stdout, otlp-grpc)", exporter)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	), nil
}

// minSeverity maps a slog level onto the OpenTelemetry severity scale.
func minSeverity(level slog.Level) minsev.Severity {
	switch {
	case level < slog.LevelInfo:
		return minsev.SeverityDebug
	case level < slog.LevelWarn:
		return minsev.SeverityInfo
	case level < slog.LevelError:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
