package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html"
)

// Match reports whether every phrase occurs literally in href.
func (p Phrases) Match(href string) bool {
	for _, phrase := range p {
		if !strings.Contains(href, phrase) {
			return false
		}
	}
	return true
}

// FilterLinks collects the targets of all anchors whose raw href contains
// every phrase, resolved against baseURL. Hrefs that fail to parse are skipped
// and reported in the returned error alongside the partial result.
func FilterLinks(ctx context.Context, logger *slog.Logger, doc *goquery.Document, baseURL *url.URL, phrases Phrases) (LinkSet, error) {
	ctx, span := startSpan(ctx, "FilterLinks")
	defer span.End()

	logger = logger.With(slog.String("base_url", baseURL.String()))
	logger.DebugContext(ctx, "Starting to extract links", slog.Any("phrases", []string(phrases)))

	result := LinkSet{}
	var errs []error

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		if !phrases.Match(href) {
			return
		}

		linkURL, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			logger.WarnContext(ctx, "Failed to parse link href", slog.String("href", href), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("failed to parse href '%s': %w", href, err))
			return
		}

		result[baseURL.ResolveReference(linkURL).String()] = struct{}{}
	})

	span.SetAttributes(
		attribute.Int("links", len(result)),
		attribute.Int("parse_errors", len(errs)),
	)
	logger.DebugContext(ctx, "Finished extracting links",
		slog.Int("links_found", len(result)),
		slog.Int("parsing_errors", len(errs)),
	)

	if len(errs) > 0 {
		span.SetStatus(codes.Error, "some hrefs could not be parsed")
		return result, errors.Join(errs...)
	}
	return result, nil
}

// LastSegment strips everything up to and including the final '/'.
func LastSegment(u string) string {
	return u[strings.LastIndex(u, "/")+1:]
}

// Identifiers reduces a link set to sorted, unique, non-empty last segments.
func Identifiers(links LinkSet) []string {
	ids := make([]string, 0, len(links))
	for link := range links {
		id := LastSegment(link)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// NormalizeSpace collapses runs of whitespace into single spaces.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PageText returns the visible text of a document with whitespace collapsed.
// Script and style contents are not part of it.
func PageText(doc *goquery.Document) string {
	var parts []string
	for _, root := range doc.Nodes {
		collectText(root, &parts)
	}
	return NormalizeSpace(strings.Join(parts, " "))
}

func collectText(n *html.Node, parts *[]string) {
	if n == nil {
		return
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, parts)
	}
}

// nextNode returns the node after n in document order.
func nextNode(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

func findNext(start *html.Node, match func(*html.Node) bool) *html.Node {
	for n := nextNode(start); n != nil; n = nextNode(n) {
		if match(n) {
			return n
		}
	}
	return nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key == "class" {
			return slices.Contains(strings.Fields(attr.Val), class)
		}
	}
	return false
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}
