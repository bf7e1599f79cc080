package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"election-results/internal/config"
)

// Telemetry owns the tracer provider installed for a run. The zero value is
// disabled: spans go to whatever global provider is already set.
type Telemetry struct {
	provider *sdktrace.TracerProvider
}

// Enabled reports whether an exporter is configured.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.provider != nil
}

// TracerProvider returns the installed provider, or nil when disabled.
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	if !t.Enabled() {
		return nil
	}
	return t.provider
}

// Shutdown flushes pending spans and stops the exporter.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if !t.Enabled() {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Setup builds an OTLP trace exporter from cfg and installs its provider as
// the global one. With no endpoint configured it returns a disabled Telemetry.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (*Telemetry, error) {
	if cfg.GRPCEndpoint == "" && cfg.HTTPEndpoint == "" {
		return &Telemetry{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	r, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(provider)

	return &Telemetry{provider: provider}, nil
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
}

func newExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if cfg.GRPCEndpoint != "" {
		return otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(cfg.GRPCEndpoint),
			otlptracegrpc.WithHeaders(cfg.Headers),
		)
	}
	return otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(cfg.HTTPEndpoint),
		otlptracehttp.WithHeaders(cfg.Headers),
	)
}
