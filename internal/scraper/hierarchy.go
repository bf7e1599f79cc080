package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Discover walks the region index and every region page. A failing index
// fetch aborts discovery; a failing region page leaves that region with no
// precincts.
func (s *Scraper) Discover(ctx context.Context) (HierarchyMap, error) {
	ctx, span := s.tracer.Start(ctx, "Discover")
	defer span.End()

	indexURL := s.pageURL(s.opts.RegionIndexPath)
	logger := s.logger.With(slog.String("index_url", indexURL))
	logger.InfoContext(ctx, "Scraping region index")

	regions, err := s.linkIdentifiers(ctx, indexURL, s.opts.RegionPhrases)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load region index", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "region index unavailable")
		return nil, fmt.Errorf("region index: %w", err)
	}
	logger.InfoContext(ctx, "Found region links",
		slog.Int("regions", len(regions)),
		slog.Any("phrases", []string(s.opts.RegionPhrases)),
	)

	hierarchy := make(HierarchyMap, len(regions))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, region := range regions {
		g.Go(func() error {
			precincts, err := s.linkIdentifiers(gctx, s.pageURL(region), s.opts.PrecinctPhrases)
			if err != nil {
				logger.WarnContext(gctx, "Failed to load region page, continuing without its precincts",
					slog.String("region", region),
					slog.Any("error", err),
				)
				precincts = []string{}
			}

			mu.Lock()
			defer mu.Unlock()
			hierarchy[region] = precincts
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("regions", len(hierarchy)),
		attribute.Int("precincts", hierarchy.PrecinctCount()),
	)
	logger.InfoContext(ctx, "Finished discovering precincts",
		slog.Int("regions", len(hierarchy)),
		slog.Int("precincts", hierarchy.PrecinctCount()),
	)
	return hierarchy, nil
}

// linkIdentifiers fetches a page and returns the identifiers of its links
// that contain every phrase.
func (s *Scraper) linkIdentifiers(ctx context.Context, pageURL string, phrases Phrases) ([]string, error) {
	doc, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	links, err := FilterLinks(ctx, s.logger, doc, s.root, phrases)
	if err != nil {
		s.logger.WarnContext(ctx, "Some links could not be parsed", slog.String("page_url", pageURL), slog.Any("error", err))
	}
	return Identifiers(links), nil
}

func (h HierarchyMap) PrecinctCount() int {
	total := 0
	for _, precincts := range h {
		total += len(precincts)
	}
	return total
}

// Regions returns the region ids in sorted order.
func (h HierarchyMap) Regions() []string {
	regions := make([]string, 0, len(h))
	for region := range h {
		regions = append(regions, region)
	}
	slices.Sort(regions)
	return regions
}

// WorkList flattens the hierarchy into (region, precinct) pairs, regions in
// sorted order and precincts in their stored order.
func (h HierarchyMap) WorkList() []WorkItem {
	items := make([]WorkItem, 0, h.PrecinctCount())
	for _, region := range h.Regions() {
		for _, precinct := range h[region] {
			items = append(items, WorkItem{Region: region, Precinct: precinct})
		}
	}
	return items
}
