package scraper

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestFilterLinks_SpanFollowsParentProvider(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, parent := tp.Tracer("test").Start(context.Background(), "parent")
	baseURL, _ := url.Parse("https://example.com/rinkimai/")
	doc := mustDoc(t, `<a href="apylinke_1.html">1</a><a href="apylinke_2.html">2</a><a href="http://a b.com/apylinke">bad</a>`)

	links, err := FilterLinks(ctx, newTestLogger(), doc, baseURL, Phrases{"apylinke"})
	require.Error(t, err)
	require.Len(t, links, 2)
	parent.End()

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	span := ended[0]
	require.Equal(t, "FilterLinks", span.Name())
	require.Equal(t, parent.SpanContext().SpanID(), span.Parent().SpanID())
	require.Contains(t, span.Attributes(), attribute.Int("links", 2))
	require.Contains(t, span.Attributes(), attribute.Int("parse_errors", 1))
}

func TestFilterLinks_WithoutParentSpan(t *testing.T) {
	baseURL, _ := url.Parse("https://example.com/")
	doc := mustDoc(t, `<a href="a.html">a</a>`)

	links, err := FilterLinks(context.Background(), newTestLogger(), doc, baseURL, nil)
	require.NoError(t, err)
	require.Len(t, links, 1)
}
