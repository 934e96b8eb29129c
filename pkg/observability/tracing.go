// Package observability sets up OpenTelemetry tracing for the CLI.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/papercomputeco/aisearch/pkg/logger"
	"github.com/papercomputeco/aisearch/pkg/utils"
)

// Exporter names.
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const serviceName = "aisearch"

// TracingConfig selects the span exporter.
type TracingConfig struct {
	// Exporter is one of "none", "stdout" or "otlp". Empty means "none".
	Exporter string

	// Endpoint is the OTLP/HTTP collector, host:port or a full URL.
	Endpoint string

	// Insecure disables TLS for the OTLP exporter.
	Insecure bool

	// Writer receives stdout exporter output. Defaults to os.Stderr.
	Writer io.Writer

	// Logger reports setup. A nil logger discards output.
	Logger *slog.Logger
}

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// InitTracing installs a global tracer provider for cfg and returns its
// shutdown func. With the "none" exporter nothing is installed and the global
// no-op provider stays in place.
func InitTracing(ctx context.Context, cfg TracingConfig) (Shutdown, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	exporterName := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	exporter, err := buildExporter(ctx, exporterName, cfg)
	if err != nil {
		return noopShutdown, err
	}
	if exporter == nil {
		return noopShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(utils.Version),
		),
	)
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Debug("otel tracing initialized",
		"exporter", exporterName,
		"endpoint", cfg.Endpoint,
	)
	return tp.Shutdown, nil
}

func buildExporter(ctx context.Context, name string, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch name {
	case "", ExporterNone:
		return nil, nil

	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating stdout exporter: %w", err)
		}
		return exp, nil

	case ExporterOTLP:
		var opts []otlptracehttp.Option
		switch endpoint := strings.TrimSpace(cfg.Endpoint); {
		case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
			opts = append(opts, otlptracehttp.WithEndpointURL(endpoint))
		case endpoint != "":
			opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating otlp exporter: %w", err)
		}
		return exp, nil

	default:
		return nil, fmt.Errorf("unknown trace exporter: %q (available: none, stdout, otlp)", cfg.Exporter)
	}
}
