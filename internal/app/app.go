package app

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"election-results/internal/config"
	"election-results/internal/scraper"
	"election-results/internal/telemetry"
)

// App wires the loaded configuration into a ready scraper.
type App struct {
	logger    *slog.Logger
	scraper   *scraper.Scraper
	telemetry *telemetry.Telemetry
}

// New installs tracing when an OTLP endpoint is configured, then builds the
// HTTP fetcher and scraper from cfg. The fetcher is shared by every page
// request of the run, so cookies and connections are reused. Call Close to
// flush spans.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	if tel.Enabled() {
		logger.InfoContext(ctx, "Tracing enabled", slog.String("service_name", cfg.Telemetry.ServiceName))
	}

	a, err := newWithFetcher(cfg, logger, scraper.NewHTTPFetcher(logger, cfg.HTTP.FetcherOptions()), tel.TracerProvider())
	if err != nil {
		_ = tel.Shutdown(ctx)
		return nil, err
	}
	a.telemetry = tel
	return a, nil
}

func newWithFetcher(cfg *config.Config, logger *slog.Logger, fetcher scraper.Fetcher, tp trace.TracerProvider) (*App, error) {
	ctx := context.Background()
	src := cfg.Source

	s, err := scraper.New(fetcher, logger, scraper.Options{
		RootURL:         src.RootURL,
		RegionIndexPath: src.RegionIndexPath,
		RegionPhrases:   scraper.Phrases(src.RegionPhrases),
		PrecinctPhrases: scraper.Phrases(src.PrecinctPhrases),
		PriorityPhrases: scraper.Phrases(src.PriorityPhrases),
		Selectors:       src.Selectors(),
		Workers:         cfg.Crawl.Workers,
		Limit:           cfg.Crawl.Limit,
		Progress:        scraper.LogProgress(ctx, logger, cfg.Crawl.ProgressStep),
		TracerProvider:  tp,
	})
	if err != nil {
		return nil, err
	}

	return &App{logger: logger, scraper: s, telemetry: &telemetry.Telemetry{}}, nil
}

// Scrape runs the full crawl and returns the reconciled results.
func (a *App) Scrape(ctx context.Context) (scraper.ResultTable, scraper.RunStats, error) {
	table, stats, err := a.scraper.Run(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "Scrape failed", slog.Any("error", err))
		return nil, stats, err
	}
	return table, stats, nil
}

// Discover walks the region and precinct pages without fetching results.
func (a *App) Discover(ctx context.Context) (scraper.HierarchyMap, error) {
	hierarchy, err := a.scraper.Discover(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "Discovery failed", slog.Any("error", err))
		return nil, err
	}
	return hierarchy, nil
}

// Close flushes and stops the trace exporter, if any.
func (a *App) Close(ctx context.Context) error {
	return a.telemetry.Shutdown(ctx)
}
