package scraper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "election-results/internal/scraper"

// startSpan starts a child span on the provider of the span already in ctx,
// so a provider handed to the Scraper reaches every function it calls.
// Without a parent span the global provider is used.
func startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	var provider trace.TracerProvider = otel.GetTracerProvider()
	if parent := trace.SpanFromContext(ctx); parent.SpanContext().IsValid() {
		provider = parent.TracerProvider()
	}
	return provider.Tracer(tracerName).Start(ctx, name, opts...)
}
